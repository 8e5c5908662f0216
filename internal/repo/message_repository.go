package repo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"Chatline/internal/db"
	"Chatline/internal/model"
	apperrors "Chatline/pkg/errors"
)

// MessageRepository owns the append-only message log and the monotonic
// seen flag.
type MessageRepository interface {
	// AppendDirect persists msg into the conversation and refreshes the
	// conversation's last-message preview. Fills msg.ID on success.
	AppendDirect(ctx context.Context, conversation *model.Conversation, msg *model.Message) error

	// AppendChannel persists msg into the channel and refreshes the
	// channel's last-message preview. Fills msg.ID on success.
	AppendChannel(ctx context.Context, channel *model.Channel, msg *model.Message) error

	// History returns one page of a conversation's messages in persistence
	// order.
	History(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error)

	// ChannelHistory returns one page of a channel's messages in
	// persistence order.
	ChannelHistory(ctx context.Context, channelID string, page int64) (*db.PaginatedResult[model.Message], error)

	// MarkSeen flips seen=true on every unseen message authored by
	// authorID in the conversation and returns how many changed. Never
	// unsets a seen flag.
	MarkSeen(ctx context.Context, conversationID, authorID string) (int64, error)
}

const historyPageSize = 50

type messageRepository struct {
	messages      *db.Repository[model.Message]
	conversations *db.Repository[model.Conversation]
	channels      *db.Repository[model.Channel]
	logger        *zap.Logger
}

func NewMessageRepository(messages *db.Repository[model.Message], conversations *db.Repository[model.Conversation], channels *db.Repository[model.Channel], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		messages:      messages,
		conversations: conversations,
		channels:      channels,
		logger:        logger,
	}
}

func (m *messageRepository) AppendDirect(ctx context.Context, conversation *model.Conversation, msg *model.Message) error {
	if conversation == nil || conversation.ID.IsZero() {
		return fmt.Errorf("%w: message needs a conversation", apperrors.ErrInvalidPayload)
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	conversationID := conversation.ID
	msg.ConversationID = &conversationID
	msg.ChannelID = nil

	if err := m.insertWithRetry(ctx, msg); err != nil {
		return err
	}

	_, err := m.conversations.UpdateByID(ctx, conversationID.Hex(), bson.M{
		"last_message":    lastMessageOf(msg),
		"last_message_at": msg.CreatedAt,
		"updated_at":      msg.CreatedAt,
	})
	if err != nil {
		m.logger.Error("failed to refresh conversation preview",
			zap.String("conversation_id", conversationID.Hex()),
			zap.Error(err),
		)
		return fmt.Errorf("%w: refresh conversation: %v", apperrors.ErrStoreUnavailable, err)
	}

	return nil
}

func (m *messageRepository) AppendChannel(ctx context.Context, channel *model.Channel, msg *model.Message) error {
	if channel == nil || channel.ID.IsZero() {
		return fmt.Errorf("%w: message needs a channel", apperrors.ErrInvalidPayload)
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	channelID := channel.ID
	msg.ChannelID = &channelID
	msg.ConversationID = nil
	msg.RecipientID = ""

	if err := m.insertWithRetry(ctx, msg); err != nil {
		return err
	}

	_, err := m.channels.UpdateByID(ctx, channelID.Hex(), bson.M{
		"last_message": lastMessageOf(msg),
		"updated_at":   msg.CreatedAt,
	})
	if err != nil {
		m.logger.Error("failed to refresh channel preview",
			zap.String("channel_id", channelID.Hex()),
			zap.Error(err),
		)
		return fmt.Errorf("%w: refresh channel: %v", apperrors.ErrStoreUnavailable, err)
	}

	return nil
}

func (m *messageRepository) History(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	return m.pagedHistory(ctx, db.NewFilter().ObjectID("conversation_id", conversationID).Build(), page)
}

func (m *messageRepository) ChannelHistory(ctx context.Context, channelID string, page int64) (*db.PaginatedResult[model.Message], error) {
	return m.pagedHistory(ctx, db.NewFilter().ObjectID("channel_id", channelID).Build(), page)
}

func (m *messageRepository) MarkSeen(ctx context.Context, conversationID, authorID string) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid conversation id", apperrors.ErrInvalidPayload)
	}

	result, err := m.messages.UpdateMany(ctx,
		db.NewFilter().
			Eq("conversation_id", objectID).
			Eq("sender_id", authorID).
			Eq("seen", false).
			Build(),
		bson.M{"seen": true},
	)
	if err != nil {
		m.logger.Error("failed to mark messages seen",
			zap.String("conversation_id", conversationID),
			zap.String("author_id", authorID),
			zap.Error(err),
		)
		return 0, fmt.Errorf("%w: mark seen: %v", apperrors.ErrStoreUnavailable, err)
	}

	return result.ModifiedCount, nil
}

func (m *messageRepository) pagedHistory(ctx context.Context, filter bson.M, page int64) (*db.PaginatedResult[model.Message], error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	result, err := m.messages.FindWithPagination(ctx, filter, db.PaginationParams{
		Page:     page,
		PageSize: historyPageSize,
		SortBy:   "created_at",
		SortDesc: false,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: load history: %v", apperrors.ErrStoreUnavailable, err)
	}
	return result, nil
}

func (m *messageRepository) insertWithRetry(ctx context.Context, msg *model.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
			}
			m.logger.Warn("retrying message insert",
				zap.String("message_id", msg.MessageID),
				zap.Int("attempt", attempt+1),
			)
		}

		result, err := m.messages.Create(ctx, *msg)
		if err == nil {
			if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
				msg.ID = oid
			}
			return nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	m.logger.Error("failed to insert message after all retries",
		zap.String("message_id", msg.MessageID),
		zap.Error(lastErr),
	)
	return fmt.Errorf("%w: insert message: %v", apperrors.ErrStoreUnavailable, lastErr)
}

func lastMessageOf(msg *model.Message) *model.LastMessage {
	return &model.LastMessage{
		MessageID: msg.MessageID,
		SenderID:  msg.SenderID,
		Type:      msg.Type,
		Preview:   msg.Preview(),
		SentAt:    msg.CreatedAt,
	}
}
