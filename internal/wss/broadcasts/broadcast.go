package broadcasts

import (
	"github.com/prajyotgorlewar/BattleIDE/internal/metrics"
	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"github.com/prajyotgorlewar/BattleIDE/internal/state"
)

// ToUser delivers ev to every local connection of userID and records the
// outcome.
func ToUser(reg *state.Registry, m *metrics.Metrics, userID string, ev model.Event) (int, error) {
	sent, err := reg.SendToUser(userID, ev)
	switch {
	case sent > 0:
		m.PushResult("delivered")
	case err != nil:
		m.PushResult("error")
	default:
		m.PushResult("offline")
	}
	return sent, err
}
