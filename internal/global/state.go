package global

import (
	"context"

	"github.com/prajyotgorlewar/BattleIDE/internal/jwt"
	"github.com/prajyotgorlewar/BattleIDE/internal/metrics"
	"github.com/prajyotgorlewar/BattleIDE/internal/service"
	"github.com/prajyotgorlewar/BattleIDE/internal/state"
)

// Presence records which users are connected across instances.
type Presence interface {
	MarkOnline(ctx context.Context, userID string) error
	MarkOffline(ctx context.Context, userID string) error
	Touch(ctx context.Context, userID string) error
}

// State holds the application state shared across the HTTP, WebSocket and
// gRPC layers. Presence and Metrics may be nil.
type State struct {
	Users      *service.UserService
	Registry   *state.Registry
	Presence   Presence
	JwtManager *jwt.JWTManager
	Metrics    *metrics.Metrics
}
