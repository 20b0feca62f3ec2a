package wsshandler

import (
	"encoding/json"

	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"github.com/prajyotgorlewar/BattleIDE/internal/wss/broadcasts"
	wsstypes "github.com/prajyotgorlewar/BattleIDE/internal/wss/types"
	"go.uber.org/zap"
)

// NewGetLeaderboardHandler answers GET_LEADERBOARD with CURRENT_LEADERBOARD.
func NewGetLeaderboardHandler(log *zap.Logger) func(*wsstypes.WsContext) error {
	log = log.Named("GetLeaderboard")
	return func(ctx *wsstypes.WsContext) error {
		var payload wsstypes.GetLeaderboardPayload
		if len(ctx.Payload) > 0 {
			if err := json.Unmarshal(ctx.Payload, &payload); err != nil {
				log.Warn("invalid payload", zap.String("requestId", ctx.RequestID), zap.Error(err))
				return broadcasts.SendError(ctx.Conn, wsstypes.GET_LEADERBOARD, "Invalid payload format")
			}
		}

		entries, err := ctx.State.Users.Leaderboard(ctx.Ctx, payload.Limit)
		if err != nil {
			log.Error("failed to get leaderboard", zap.String("requestId", ctx.RequestID), zap.Error(err))
			return broadcasts.SendError(ctx.Conn, wsstypes.GET_LEADERBOARD, "Failed to retrieve leaderboard")
		}

		log.Debug("sending leaderboard",
			zap.String("requestId", ctx.RequestID),
			zap.String("userId", ctx.UserID),
			zap.Int("entries", len(entries)))
		return broadcasts.SendEvent(ctx.Conn, model.EventCurrentLeaderboard, model.LeaderboardPayload{Leaderboard: entries})
	}
}
