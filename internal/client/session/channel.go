package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prajyotgorlewar/BattleIDE/internal/config"
	"github.com/prajyotgorlewar/BattleIDE/internal/logger"
	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("channel not connected")

type Status int32

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusClosed:
		return "closed"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// ReconnectConfig controls the exponential backoff between connection attempts.
type ReconnectConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		Jitter:       0.2,
	}
}

func (r ReconnectConfig) next(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * r.Multiplier)
	if next > r.MaxDelay {
		next = r.MaxDelay
	}
	return next
}

func (r ReconnectConfig) jittered(d time.Duration) time.Duration {
	if r.Jitter <= 0 {
		return d
	}
	delta := float64(d) * r.Jitter * (rand.Float64()*2 - 1)
	return d + time.Duration(delta)
}

// WebsocketDialer opens channels over gorilla/websocket. The zero value is
// usable.
type WebsocketDialer struct {
	Dialer     *websocket.Dialer
	Header     http.Header
	Reconnect  ReconnectConfig
	Logger     *zap.Logger
	BufferSize int
}

func (d *WebsocketDialer) Open(endpoint, identity string) (Channel, error) {
	if identity == "" {
		return nil, errors.New("identity is required")
	}
	target, err := ChannelURL(endpoint, identity)
	if err != nil {
		return nil, err
	}

	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	backoff := d.Reconnect
	if backoff.InitialDelay <= 0 {
		backoff = DefaultReconnectConfig()
	}
	size := d.BufferSize
	if size <= 0 {
		size = 64
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &wsChannel{
		identity: identity,
		target:   target,
		dialer:   dialer,
		header:   d.Header,
		backoff:  backoff,
		log:      logger.OrNop(d.Logger).Named("channel").With(zap.String("userId", identity)),
		events:   make(chan model.Event, size),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go c.run(ctx)
	return c, nil
}

// ChannelURL returns the websocket URL for identity on the API at base.
func ChannelURL(base, identity string) (string, error) {
	socket, err := config.SocketURL(base)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(socket)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("userId", identity)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type wsChannel struct {
	identity string
	target   string
	dialer   *websocket.Dialer
	header   http.Header
	backoff  ReconnectConfig
	log      *zap.Logger

	events chan model.Event
	status atomic.Int32

	mu   sync.Mutex
	conn *websocket.Conn

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func (c *wsChannel) Identity() string           { return c.identity }
func (c *wsChannel) Events() <-chan model.Event { return c.events }
func (c *wsChannel) Status() Status             { return Status(c.status.Load()) }

func (c *wsChannel) Send(ctx context.Context, ev model.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(10 * time.Second)
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteJSON(ev)
}

func (c *wsChannel) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		if c.conn != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			_ = c.conn.Close()
		}
		c.mu.Unlock()

		<-c.done
	})
	return nil
}

func (c *wsChannel) run(ctx context.Context) {
	defer close(c.done)
	defer close(c.events)
	defer c.status.Store(int32(StatusClosed))

	delay := c.backoff.InitialDelay
	attempt := 0
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.target, c.header)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			attempt++
			wait := c.backoff.jittered(delay)
			c.log.Warn("connect failed", zap.Int("attempt", attempt), zap.Duration("retryIn", wait), zap.Error(err))

			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			delay = c.backoff.next(delay)
			continue
		}

		if !c.attach(ctx, conn) {
			return
		}
		delay = c.backoff.InitialDelay
		attempt = 0
		c.status.Store(int32(StatusConnected))
		c.log.Info("connected")

		c.readLoop(conn)

		c.detach()
		if ctx.Err() != nil {
			return
		}
		c.status.Store(int32(StatusConnecting))
		c.log.Info("connection lost, reconnecting")
	}
}

// attach publishes conn unless the channel was closed while dialing.
func (c *wsChannel) attach(ctx context.Context, conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx.Err() != nil {
		_ = conn.Close()
		return false
	}
	c.conn = conn
	return true
}

func (c *wsChannel) detach() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *wsChannel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("read ended", zap.Error(err))
			}
			return
		}

		var ev model.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.log.Warn("invalid frame", zap.Error(err))
			continue
		}

		select {
		case c.events <- ev:
		default:
			c.log.Warn("event buffer full, dropping", zap.String("type", string(ev.Type)))
		}
	}
}
