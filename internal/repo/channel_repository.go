package repo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"Chatline/internal/db"
	"Chatline/internal/model"
	apperrors "Chatline/pkg/errors"
)

// ChannelRepository reads and creates channels. Membership changes after
// creation belong to the management surface, not the gateway.
type ChannelRepository interface {
	// Get returns the channel or ErrNotFound.
	Get(ctx context.Context, channelID string) (*model.Channel, error)

	// Create persists a new channel. The admin is always included in the
	// member set.
	Create(ctx context.Context, name, adminID string, memberIDs []string) (*model.Channel, error)

	// ListForUser returns the channels the user belongs to, newest
	// activity first.
	ListForUser(ctx context.Context, userID string) ([]model.Channel, error)

	// ListMembers returns the channel's current member ids.
	ListMembers(ctx context.Context, channelID string) ([]string, error)
}

type channelRepository struct {
	channels *db.Repository[model.Channel]
	logger   *zap.Logger
}

func NewChannelRepository(channels *db.Repository[model.Channel], logger *zap.Logger) ChannelRepository {
	return &channelRepository{channels: channels, logger: logger}
}

func (r *channelRepository) Get(ctx context.Context, channelID string) (*model.Channel, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	channel, err := r.channels.FindByID(ctx, channelID)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		if _, hexErr := primitive.ObjectIDFromHex(channelID); hexErr != nil {
			return nil, fmt.Errorf("%w: invalid channel id", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: find channel: %v", apperrors.ErrStoreUnavailable, err)
	}
	return channel, nil
}

func (r *channelRepository) Create(ctx context.Context, name, adminID string, memberIDs []string) (*model.Channel, error) {
	if name == "" || adminID == "" {
		return nil, fmt.Errorf("%w: channel needs a name and an admin", apperrors.ErrInvalidPayload)
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	members := make([]string, 0, len(memberIDs)+1)
	seen := map[string]struct{}{adminID: {}}
	members = append(members, adminID)
	for _, id := range memberIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}

	now := time.Now().UTC()
	channel := model.Channel{
		Name:      name,
		AdminID:   adminID,
		MemberIDs: members,
		CreatedAt: now,
		UpdatedAt: now,
	}

	result, err := r.channels.Create(ctx, channel)
	if err != nil {
		r.logger.Error("failed to create channel",
			zap.String("name", name),
			zap.String("admin_id", adminID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: create channel: %v", apperrors.ErrStoreUnavailable, err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		channel.ID = oid
	}
	return &channel, nil
}

func (r *channelRepository) ListForUser(ctx context.Context, userID string) ([]model.Channel, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	channels, err := r.channels.FindAll(ctx,
		db.NewFilter().Eq("member_ids", userID).Build(),
		"updated_at", true,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list channels: %v", apperrors.ErrStoreUnavailable, err)
	}
	return channels, nil
}

func (r *channelRepository) ListMembers(ctx context.Context, channelID string) ([]string, error) {
	channel, err := r.Get(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return channel.MemberIDs, nil
}
