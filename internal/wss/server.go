package wss

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prajyotgorlewar/BattleIDE/internal/global"
	"github.com/prajyotgorlewar/BattleIDE/internal/logger"
	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"github.com/prajyotgorlewar/BattleIDE/internal/wss/broadcasts"
	wsshandler "github.com/prajyotgorlewar/BattleIDE/internal/wss/handlers"
	"github.com/prajyotgorlewar/BattleIDE/internal/wss/middleware"
	wsstypes "github.com/prajyotgorlewar/BattleIDE/internal/wss/types"
	"go.uber.org/zap"
)

type HandlerConfig struct {
	// AllowedOrigins lists browser origins allowed to connect. Requests
	// without an Origin header are always accepted.
	AllowedOrigins []string
	// Auth, when set, requires a token whose subject equals userId.
	Auth *middleware.AuthMiddleware
	// PingInterval is how often the server pings the peer and refreshes its
	// presence. Zero means wsstypes.PingInterval; it must stay below the
	// presence TTL.
	PingInterval time.Duration
	Logger       *zap.Logger
}

// RegisterDefaultHandlers wires the built-in frame handlers.
func RegisterDefaultHandlers(d *Dispatcher, log *zap.Logger) {
	log = logger.OrNop(log)
	d.Register(wsstypes.PING, wsshandler.NewPingHandler(log))
	d.Register(wsstypes.GET_LEADERBOARD, wsshandler.NewGetLeaderboardHandler(log))
}

// WsHandler upgrades GET /ws?userId=<id> and serves the connection until
// either side closes it.
func WsHandler(dispatcher *Dispatcher, state *global.State, cfg HandlerConfig) http.HandlerFunc {
	log := logger.OrNop(cfg.Logger).Named("wss")
	interval := cfg.PingInterval
	if interval <= 0 {
		interval = wsstypes.PingInterval
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(cfg.AllowedOrigins, "*") || slices.Contains(cfg.AllowedOrigins, origin)
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			http.Error(w, "userId is required", http.StatusBadRequest)
			return
		}
		if cfg.Auth != nil {
			if err := cfg.Auth.AuthorizeHandshake(r, userID); err != nil {
				log.Warn("handshake rejected", zap.String("userId", userID), zap.Error(err))
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("upgrade error", zap.String("userId", userID), zap.Error(err))
			return
		}

		conn := wsstypes.NewConn(uuid.New().String(), userID, ws)
		serveConn(r.Context(), conn, dispatcher, state, interval, log.With(zap.String("userId", userID), zap.String("connectionId", conn.ID())))
	}
}

func serveConn(parent context.Context, conn *wsstypes.Conn, dispatcher *Dispatcher, state *global.State, interval time.Duration, log *zap.Logger) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	register(ctx, conn, state, log)
	defer cleanupConnection(conn, state, log)

	if err := broadcasts.SendEvent(conn, model.EventConnected, model.ConnectedPayload{
		UserID:       conn.UserID(),
		ConnectionID: conn.ID(),
	}); err != nil {
		log.Warn("greeting failed", zap.Error(err))
		return
	}

	go keepAlive(ctx, conn, state, interval, log)
	readLoop(ctx, conn, dispatcher, state, log)
}

func register(ctx context.Context, conn *wsstypes.Conn, state *global.State, log *zap.Logger) {
	state.Registry.Add(conn)
	state.Metrics.SessionOpened()
	if state.Presence != nil {
		if err := state.Presence.MarkOnline(ctx, conn.UserID()); err != nil {
			log.Warn("presence update failed", zap.Error(err))
		}
	}
	log.Info("connection established")
}

func readLoop(ctx context.Context, conn *wsstypes.Conn, dispatcher *Dispatcher, state *global.State, log *zap.Logger) {
	ws := conn.Raw()
	ws.SetReadLimit(wsstypes.MaxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(wsstypes.ReadTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsstypes.ReadTimeout))
	})

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("read error", zap.Error(err))
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(wsstypes.ReadTimeout))

		var wsMsg wsstypes.WsMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil || wsMsg.Type == "" {
			log.Debug("invalid message format", zap.Error(err))
			_ = broadcasts.SendError(conn, "", "Invalid message format")
			continue
		}

		wsCtx := &wsstypes.WsContext{
			Ctx:       ctx,
			Conn:      conn,
			UserID:    conn.UserID(),
			RequestID: uuid.New().String(),
			Payload:   wsMsg.Payload,
			State:     state,
		}

		if err := dispatcher.Dispatch(wsMsg.Type, wsCtx); errors.Is(err, ErrUnknownEvent) {
			_ = broadcasts.SendError(conn, wsMsg.Type, "Unknown event type")
		}
	}
}

// keepAlive pings the peer and extends the user's presence on every tick, so
// presence outlives its TTL for as long as the connection does.
func keepAlive(ctx context.Context, conn *wsstypes.Conn, state *global.State, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				log.Debug("ping failed", zap.Error(err))
				return
			}
			if state.Presence != nil {
				if err := state.Presence.Touch(ctx, conn.UserID()); err != nil {
					log.Warn("presence refresh failed", zap.Error(err))
				}
			}
		}
	}
}

func cleanupConnection(conn *wsstypes.Conn, state *global.State, log *zap.Logger) {
	last := state.Registry.Remove(conn.UserID(), conn.ID())
	state.Metrics.SessionClosed()
	_ = conn.Close()

	if state.Presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := state.Presence.MarkOffline(ctx, conn.UserID()); err != nil {
			log.Warn("presence update failed", zap.Error(err))
		}
	}
	log.Info("connection closed", zap.Bool("lastForUser", last))
}
