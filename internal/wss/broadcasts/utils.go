package broadcasts

import (
	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	wsstypes "github.com/prajyotgorlewar/BattleIDE/internal/wss/types"
)

func SendJSON(conn *wsstypes.Conn, data interface{}) error {
	return conn.WriteJSON(data)
}

func SendEvent(conn *wsstypes.Conn, eventType model.EventType, payload any) error {
	ev, err := model.NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	return conn.Send(ev)
}

// SendError reports a failed request back to the sender. requestType names
// the frame type that failed.
func SendError(conn *wsstypes.Conn, requestType string, msg string) error {
	return SendEvent(conn, model.EventError, map[string]string{
		"requestType": requestType,
		"message":     msg,
	})
}
