package wsshandler

import (
	"time"

	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"github.com/prajyotgorlewar/BattleIDE/internal/wss/broadcasts"
	wsstypes "github.com/prajyotgorlewar/BattleIDE/internal/wss/types"
	"go.uber.org/zap"
)

// NewPingHandler answers PING with PONG and refreshes the user's presence.
func NewPingHandler(log *zap.Logger) func(*wsstypes.WsContext) error {
	log = log.Named("Ping")
	return func(ctx *wsstypes.WsContext) error {
		if p := ctx.State.Presence; p != nil {
			if err := p.Touch(ctx.Ctx, ctx.UserID); err != nil {
				log.Warn("presence refresh failed", zap.String("userId", ctx.UserID), zap.Error(err))
			}
		}
		return broadcasts.SendEvent(ctx.Conn, model.EventPong, map[string]int64{"time": time.Now().UnixMilli()})
	}
}
