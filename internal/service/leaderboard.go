package service

import (
	"context"
	"fmt"

	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"go.uber.org/zap"
)

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 100
)

// Leaderboard returns the top users in store order with 1-based ranks.
// limit <= 0 selects the configured default; larger values are capped.
func (s *UserService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	switch {
	case limit <= 0:
		limit = s.defaultLimit
	case limit > MaxLeaderboardLimit:
		limit = MaxLeaderboardLimit
	}

	users, err := s.repo.TopByRating(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}

	entries := RankUsers(users)
	s.log.Debug("leaderboard served", zap.Int("limit", limit), zap.Int("entries", len(entries)))
	return entries, nil
}

// RankUsers converts ordered users into leaderboard entries.
func RankUsers(users []model.User) []model.LeaderboardEntry {
	entries := make([]model.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, model.LeaderboardEntry{
			UserID:    u.ID,
			Username:  u.Username,
			AvatarURL: u.AvatarURL,
			Rating:    u.Rating,
			Rank:      i + 1,
		})
	}
	return entries
}
