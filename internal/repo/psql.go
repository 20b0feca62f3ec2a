package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"gorm.io/gorm"
)

type PSQLRepository struct {
	db *gorm.DB
}

func NewPSQLRepository(db *gorm.DB) *PSQLRepository {
	return &PSQLRepository{db: db}
}

func (r *PSQLRepository) FindByAuthID(ctx context.Context, authID string) (*model.User, error) {
	if authID == "" {
		return nil, ErrUserNotFound
	}

	var user model.User
	err := r.db.WithContext(ctx).Where("clerk_id = ?", authID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *PSQLRepository) TopByRating(ctx context.Context, limit int) ([]model.User, error) {
	if limit < 1 {
		return nil, errors.New("invalid limit")
	}

	var users []model.User
	err := r.db.WithContext(ctx).
		Select("id", "clerk_id", "username", "avatar_url", "rating", "created_at").
		Order("rating DESC").
		Order("username ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	return users, nil
}
