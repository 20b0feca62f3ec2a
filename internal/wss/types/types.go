package wsstypes

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prajyotgorlewar/BattleIDE/internal/global"
	"github.com/prajyotgorlewar/BattleIDE/internal/model"
)

const (
	WriteTimeout = 10 * time.Second
	ReadTimeout  = 60 * time.Second
	PingInterval = ReadTimeout * 9 / 10
	MaxFrameSize = 64 << 10
)

// Conn wraps a websocket connection bound to one user. Writes are serialized.
type Conn struct {
	id     string
	userID string
	ws     *websocket.Conn
	mu     sync.Mutex
}

func NewConn(id, userID string, ws *websocket.Conn) *Conn {
	return &Conn{id: id, userID: userID, ws: ws}
}

func (c *Conn) ID() string     { return c.id }
func (c *Conn) UserID() string { return c.userID }

func (c *Conn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(v)
}

func (c *Conn) Send(ev model.Event) error { return c.WriteJSON(ev) }

func (c *Conn) Ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(WriteTimeout))
}

func (c *Conn) Close() error { return c.ws.Close() }

// Raw exposes the underlying connection to the read loop, the only reader.
func (c *Conn) Raw() *websocket.Conn { return c.ws }

// WsContext is what a dispatched handler sees for one inbound frame.
type WsContext struct {
	Ctx       context.Context
	Conn      *Conn
	UserID    string
	RequestID string
	Payload   json.RawMessage
	State     *global.State
}

// WsMessage is an inbound frame.
type WsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type GetLeaderboardPayload struct {
	Limit int `json:"limit,omitempty"`
}

const (
	PING            = string(model.EventPing)
	GET_LEADERBOARD = string(model.EventGetLeaderboard)
)
