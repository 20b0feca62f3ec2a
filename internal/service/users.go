package service

import (
	"context"
	"fmt"

	"github.com/prajyotgorlewar/BattleIDE/internal/logger"
	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"github.com/prajyotgorlewar/BattleIDE/internal/repo"
	"go.uber.org/zap"
)

// UserService answers the profile and leaderboard queries behind the dashboard.
type UserService struct {
	repo         repo.UserRepository
	defaultLimit int
	log          *zap.Logger
}

func NewUserService(r repo.UserRepository, defaultLimit int, log *zap.Logger) *UserService {
	if defaultLimit < 1 || defaultLimit > MaxLeaderboardLimit {
		defaultLimit = DefaultLeaderboardLimit
	}
	return &UserService{
		repo:         r,
		defaultLimit: defaultLimit,
		log:          logger.OrNop(log).Named("users"),
	}
}

// Me returns the profile of the authenticated user. Slices are never nil so
// clients always see [] rather than null.
func (s *UserService) Me(ctx context.Context, authID string) (*model.User, error) {
	user, err := s.repo.FindByAuthID(ctx, authID)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", authID, err)
	}
	if user.Matches == nil {
		user.Matches = []string{}
	}
	if user.Submissions == nil {
		user.Submissions = []model.Submission{}
	}
	return user, nil
}
