package repo

import (
	"context"
	"errors"

	"github.com/prajyotgorlewar/BattleIDE/internal/model"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository is the read side of the user store.
type UserRepository interface {
	FindByAuthID(ctx context.Context, authID string) (*model.User, error)
	// TopByRating returns at most limit users ordered by rating descending,
	// then username ascending.
	TopByRating(ctx context.Context, limit int) ([]model.User, error)
}
