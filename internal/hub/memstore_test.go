package hub

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"Chatline/internal/db"
	"Chatline/internal/model"
	apperrors "Chatline/pkg/errors"
)

// memStore is an in-memory stand-in for the MongoDB-backed repositories,
// shared by the per-interface wrappers below.
type memStore struct {
	mu            sync.Mutex
	users         map[string]*model.User
	conversations map[string]*model.Conversation // by pair key
	messages      []*model.Message
	channels      map[string]*model.Channel // by hex id

	failAppends bool
	listGates   map[string]chan struct{}
}

func newMemStore(userIDs ...string) *memStore {
	s := &memStore{
		users:         make(map[string]*model.User),
		conversations: make(map[string]*model.Conversation),
		channels:      make(map[string]*model.Channel),
	}
	for _, id := range userIDs {
		s.users[id] = &model.User{
			ID:       primitive.NewObjectID(),
			UserID:   id,
			Name:     id,
			Email:    id + "@example.com",
			IsActive: true,
		}
	}
	return s
}

func (s *memStore) addChannel(name, adminID string, memberIDs []string) *model.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel := &model.Channel{
		ID:        primitive.NewObjectID(),
		Name:      name,
		AdminID:   adminID,
		MemberIDs: memberIDs,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.channels[channel.ID.Hex()] = channel
	return channel
}

func (s *memStore) setFailAppends(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAppends = fail
}

// gateChannelList makes ListForUser block for one user until the returned
// release function is called.
func (s *memStore) gateChannelList(userID string) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listGates == nil {
		s.listGates = make(map[string]chan struct{})
	}
	gate := make(chan struct{})
	s.listGates[userID] = gate
	return func() { close(gate) }
}

type memUsers struct{ s *memStore }

func (r *memUsers) Get(_ context.Context, userID string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *memUsers) AllExist(_ context.Context, userIDs []string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, id := range userIDs {
		if _, ok := r.s.users[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

type memConversations struct{ s *memStore }

func (r *memConversations) FindOrCreate(_ context.Context, userA, userB string) (*model.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := model.PairKey(userA, userB)
	if existing, ok := r.s.conversations[key]; ok {
		copied := *existing
		return &copied, nil
	}

	now := time.Now().UTC()
	conversation := &model.Conversation{
		ID:             primitive.NewObjectID(),
		PairKey:        key,
		ParticipantIDs: []string{userA, userB},
		CreatedAt:      now,
		UpdatedAt:      now,
		LastMessageAt:  now,
	}
	r.s.conversations[key] = conversation
	copied := *conversation
	return &copied, nil
}

func (r *memConversations) FindByPair(_ context.Context, userA, userB string) (*model.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	conversation, ok := r.s.conversations[model.PairKey(userA, userB)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *conversation
	return &copied, nil
}

func (r *memConversations) Summaries(_ context.Context, userID string) ([]model.ConversationSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	summaries := make([]model.ConversationSummary, 0)
	for _, c := range r.s.conversations {
		if !c.HasParticipant(userID) {
			continue
		}
		peer := c.PeerOf(userID)

		var unread int64
		for _, m := range r.s.messages {
			if m.ConversationID != nil && *m.ConversationID == c.ID && m.SenderID == peer && !m.Seen {
				unread++
			}
		}

		summaries = append(summaries, model.ConversationSummary{
			ConversationID: c.ID.Hex(),
			PeerID:         peer,
			LastMessage:    c.LastMessage,
			UnreadCount:    unread,
			UpdatedAt:      c.LastMessageAt,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

type memMessages struct{ s *memStore }

func (r *memMessages) AppendDirect(_ context.Context, conversation *model.Conversation, msg *model.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.failAppends {
		return fmt.Errorf("%w: insert message", apperrors.ErrStoreUnavailable)
	}

	msg.ID = primitive.NewObjectID()
	conversationID := conversation.ID
	msg.ConversationID = &conversationID

	copied := *msg
	r.s.messages = append(r.s.messages, &copied)

	if stored, ok := r.s.conversations[conversation.PairKey]; ok {
		stored.LastMessageAt = msg.CreatedAt
		stored.UpdatedAt = msg.CreatedAt
		stored.LastMessage = &model.LastMessage{
			MessageID: msg.MessageID,
			SenderID:  msg.SenderID,
			Type:      msg.Type,
			Preview:   msg.Preview(),
			SentAt:    msg.CreatedAt,
		}
	}
	return nil
}

func (r *memMessages) AppendChannel(_ context.Context, channel *model.Channel, msg *model.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.failAppends {
		return fmt.Errorf("%w: insert message", apperrors.ErrStoreUnavailable)
	}

	msg.ID = primitive.NewObjectID()
	channelID := channel.ID
	msg.ChannelID = &channelID
	msg.RecipientID = ""

	copied := *msg
	r.s.messages = append(r.s.messages, &copied)

	if stored, ok := r.s.channels[channel.ID.Hex()]; ok {
		stored.UpdatedAt = msg.CreatedAt
		stored.LastMessage = &model.LastMessage{
			MessageID: msg.MessageID,
			SenderID:  msg.SenderID,
			Type:      msg.Type,
			Preview:   msg.Preview(),
			SentAt:    msg.CreatedAt,
		}
	}
	return nil
}

func (r *memMessages) History(_ context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	results := make([]model.Message, 0)
	for _, m := range r.s.messages {
		if m.ConversationID != nil && m.ConversationID.Hex() == conversationID {
			results = append(results, *m)
		}
	}
	return &db.PaginatedResult[model.Message]{
		Data:       results,
		Total:      int64(len(results)),
		Page:       page,
		TotalPages: 1,
	}, nil
}

func (r *memMessages) ChannelHistory(_ context.Context, channelID string, page int64) (*db.PaginatedResult[model.Message], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	results := make([]model.Message, 0)
	for _, m := range r.s.messages {
		if m.ChannelID != nil && m.ChannelID.Hex() == channelID {
			results = append(results, *m)
		}
	}
	return &db.PaginatedResult[model.Message]{
		Data:       results,
		Total:      int64(len(results)),
		Page:       page,
		TotalPages: 1,
	}, nil
}

func (r *memMessages) MarkSeen(_ context.Context, conversationID, authorID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var modified int64
	for _, m := range r.s.messages {
		if m.ConversationID != nil && m.ConversationID.Hex() == conversationID && m.SenderID == authorID && !m.Seen {
			m.Seen = true
			modified++
		}
	}
	return modified, nil
}

type memChannels struct{ s *memStore }

func (r *memChannels) Get(_ context.Context, channelID string) (*model.Channel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	channel, ok := r.s.channels[channelID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *channel
	return &copied, nil
}

func (r *memChannels) Create(_ context.Context, name, adminID string, memberIDs []string) (*model.Channel, error) {
	members := []string{adminID}
	for _, id := range memberIDs {
		if id != adminID {
			members = append(members, id)
		}
	}
	return r.s.addChannel(name, adminID, members), nil
}

func (r *memChannels) ListForUser(ctx context.Context, userID string) ([]model.Channel, error) {
	r.s.mu.Lock()
	gate := r.s.listGates[userID]
	r.s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	results := make([]model.Channel, 0)
	for _, c := range r.s.channels {
		if c.HasMember(userID) {
			results = append(results, *c)
		}
	}
	return results, nil
}

func (r *memChannels) ListMembers(_ context.Context, channelID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	channel, ok := r.s.channels[channelID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	members := make([]string, len(channel.MemberIDs))
	copy(members, channel.MemberIDs)
	return members, nil
}
