package repo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"Chatline/internal/db"
	"Chatline/internal/model"
	apperrors "Chatline/pkg/errors"
)

// UserRepository is the gateway's read-only view of users.
type UserRepository interface {
	// Get returns the user or ErrNotFound.
	Get(ctx context.Context, userID string) (*model.User, error)

	// AllExist reports whether every id resolves to a known user.
	AllExist(ctx context.Context, userIDs []string) (bool, error)
}

type userRepository struct {
	users *db.Repository[model.User]
}

func NewUserRepository(users *db.Repository[model.User]) UserRepository {
	return &userRepository{users: users}
}

func (r *userRepository) Get(ctx context.Context, userID string) (*model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	user, err := r.users.FindOne(ctx, db.NewFilter().Eq("user_id", userID).Build())
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %v", apperrors.ErrStoreUnavailable, err)
	}
	return user, nil
}

func (r *userRepository) AllExist(ctx context.Context, userIDs []string) (bool, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	count, err := r.users.Count(ctx, db.NewFilter().In("user_id", userIDs).Build())
	if err != nil {
		return false, fmt.Errorf("%w: count users: %v", apperrors.ErrStoreUnavailable, err)
	}
	return count == int64(len(userIDs)), nil
}
