package repo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"Chatline/internal/db"
	"Chatline/internal/model"
	apperrors "Chatline/pkg/errors"
)

// ConversationRepository resolves unordered user pairs to their single
// conversation record and builds sidebar summaries.
type ConversationRepository interface {
	// FindOrCreate returns the conversation for the pair, creating it
	// atomically when absent. Two racing first-contact resolutions see the
	// same conversation.
	FindOrCreate(ctx context.Context, userA, userB string) (*model.Conversation, error)

	// FindByPair returns the conversation for the pair or ErrNotFound.
	FindByPair(ctx context.Context, userA, userB string) (*model.Conversation, error)

	// Summaries returns the user's sidebar entries, newest activity first,
	// each with the viewer's unread count.
	Summaries(ctx context.Context, userID string) ([]model.ConversationSummary, error)
}

type conversationRepository struct {
	conversations *db.Repository[model.Conversation]
	messages      *db.Repository[model.Message]
	logger        *zap.Logger
}

func NewConversationRepository(conversations *db.Repository[model.Conversation], messages *db.Repository[model.Message], logger *zap.Logger) ConversationRepository {
	return &conversationRepository{
		conversations: conversations,
		messages:      messages,
		logger:        logger,
	}
}

// EnsurePairIndex creates the unique index backing pair uniqueness. Called
// once at startup; the index, not application locking, arbitrates
// concurrent creates.
func EnsurePairIndex(ctx context.Context, conversations *db.Repository[model.Conversation]) error {
	return conversations.EnsureIndex(ctx, bson.D{{Key: "pair_key", Value: 1}}, true)
}

func (r *conversationRepository) FindOrCreate(ctx context.Context, userA, userB string) (*model.Conversation, error) {
	if userA == "" || userB == "" || userA == userB {
		return nil, fmt.Errorf("%w: conversation needs two distinct participants", apperrors.ErrInvalidPayload)
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	pairKey := model.PairKey(userA, userB)
	if userA > userB {
		userA, userB = userB, userA
	}

	now := time.Now().UTC()
	filter := db.NewFilter().Eq("pair_key", pairKey).Build()
	conversation, err := resolveUpsert(
		func() (*model.Conversation, error) {
			return r.conversations.FindOneAndUpsert(ctx, filter, bson.M{
				"participant_ids": []string{userA, userB},
				"created_at":      now,
				"updated_at":      now,
				"last_message_at": now,
			})
		},
		func() (*model.Conversation, error) {
			return r.conversations.FindOne(ctx, filter)
		},
	)
	if err != nil {
		r.logger.Error("failed to resolve conversation",
			zap.String("pair_key", pairKey),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: resolve conversation: %v", apperrors.ErrStoreUnavailable, err)
	}

	return conversation, nil
}

// resolveUpsert runs the pair upsert and, when the unique index reports
// that a racing create already won, reads the winner's document instead.
func resolveUpsert(upsert, find func() (*model.Conversation, error)) (*model.Conversation, error) {
	conversation, err := upsert()
	if mongo.IsDuplicateKeyError(err) {
		return find()
	}
	return conversation, err
}

func (r *conversationRepository) FindByPair(ctx context.Context, userA, userB string) (*model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	conversation, err := r.conversations.FindOne(ctx, db.NewFilter().Eq("pair_key", model.PairKey(userA, userB)).Build())
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find conversation: %v", apperrors.ErrStoreUnavailable, err)
	}
	return conversation, nil
}

func (r *conversationRepository) Summaries(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	conversations, err := r.conversations.FindAll(ctx,
		db.NewFilter().Eq("participant_ids", userID).Build(),
		"last_message_at", true,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list conversations: %v", apperrors.ErrStoreUnavailable, err)
	}

	summaries := make([]model.ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		peerID := conversation.PeerOf(userID)

		unread, err := r.messages.Count(ctx, db.NewFilter().
			Eq("conversation_id", conversation.ID).
			Eq("sender_id", peerID).
			Eq("seen", false).
			Build())
		if err != nil {
			return nil, fmt.Errorf("%w: count unread: %v", apperrors.ErrStoreUnavailable, err)
		}

		summaries = append(summaries, model.ConversationSummary{
			ConversationID: conversation.ID.Hex(),
			PeerID:         peerID,
			LastMessage:    conversation.LastMessage,
			UnreadCount:    unread,
			UpdatedAt:      conversation.UpdatedAt,
		})
	}

	return summaries, nil
}
