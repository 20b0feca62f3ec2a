// Package session binds the signed-in identity to a single realtime channel.
//
// A Manager owns at most one open Channel. Every identity change closes the
// previous channel before a new one is opened, and teardown closes whatever
// is left exactly once.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prajyotgorlewar/BattleIDE/internal/logger"
	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"go.uber.org/zap"
)

// ErrManagerClosed is returned by SetIdentity after Close.
var ErrManagerClosed = errors.New("session manager closed")

// State is the lifecycle position of a Manager.
type State int

const (
	StateUnbound State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Channel is a live realtime connection bound to one identity.
type Channel interface {
	Identity() string
	Events() <-chan model.Event
	Send(ctx context.Context, ev model.Event) error
	Status() Status
	Close() error
}

// Dialer creates channels. Open must return without waiting on the network;
// connecting and reconnecting are the channel's own business.
type Dialer interface {
	Open(endpoint, identity string) (Channel, error)
}

// Snapshot is what subscribers observe after every transition.
type Snapshot struct {
	State    State
	Identity string
	Channel  Channel
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger; nil keeps the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = logger.OrNop(l).Named("session") }
}

// Manager owns the channel slot for one signed-in identity.
type Manager struct {
	endpoint string
	dialer   Dialer
	log      *zap.Logger

	mu       sync.Mutex
	state    State
	identity string
	current  Channel
	torn     bool
	subs     map[uint64]chan Snapshot
	nextSub  uint64
}

// NewManager returns a manager that opens channels against endpoint, the
// resolved API base URL.
func NewManager(endpoint string, dialer Dialer, opts ...Option) *Manager {
	m := &Manager{
		endpoint: endpoint,
		dialer:   dialer,
		log:      zap.NewNop(),
		subs:     make(map[uint64]chan Snapshot),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetIdentity applies an identity value. An empty identity means signed out.
func (m *Manager) SetIdentity(identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.torn {
		return ErrManagerClosed
	}
	if identity == m.identity {
		return nil
	}

	if m.current != nil {
		m.closeCurrentLocked()
	}
	if identity == "" {
		return nil
	}

	ch, err := m.dialer.Open(m.endpoint, identity)
	if err != nil {
		m.log.Error("failed to open channel", zap.String("userId", identity), zap.Error(err))
		return fmt.Errorf("open channel for %q: %w", identity, err)
	}

	m.current = ch
	m.identity = identity
	m.state = StateOpen
	m.log.Info("channel opened", zap.String("userId", identity))
	m.publishLocked()
	return nil
}

// Watch applies identities in arrival order until ctx ends or the stream is
// closed, then tears the manager down.
func (m *Manager) Watch(ctx context.Context, identities <-chan string) error {
	defer m.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case identity, ok := <-identities:
			if !ok {
				return nil
			}
			if err := m.SetIdentity(identity); err != nil {
				if errors.Is(err, ErrManagerClosed) {
					return err
				}
				m.log.Warn("identity change not applied", zap.Error(err))
			}
		}
	}
}

func (m *Manager) Current() Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe delivers the current snapshot and then every later one. Only the
// latest snapshot is buffered. The channel is closed on teardown or when the
// returned cancel func is called.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.torn {
		ch <- m.snapshotLocked()
		close(ch)
		return ch, func() {}
	}

	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if sub, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(sub)
			}
		})
	}
}

// Close tears the manager down. It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.torn {
		return nil
	}
	m.torn = true

	if m.current != nil {
		m.closeCurrentLocked()
	}
	for id, sub := range m.subs {
		delete(m.subs, id)
		close(sub)
	}
	m.log.Debug("manager torn down")
	return nil
}

func (m *Manager) closeCurrentLocked() {
	identity := m.identity
	if err := m.current.Close(); err != nil {
		m.log.Warn("channel close returned error", zap.String("userId", identity), zap.Error(err))
	}
	m.current = nil
	m.identity = ""
	m.state = StateClosed
	m.log.Info("channel closed", zap.String("userId", identity))
	m.publishLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{State: m.state, Identity: m.identity, Channel: m.current}
}

func (m *Manager) publishLocked() {
	snap := m.snapshotLocked()
	for _, sub := range m.subs {
		select {
		case sub <- snap:
			continue
		default:
		}
		// drop the stale snapshot so the newest one fits
		select {
		case <-sub:
		default:
		}
		select {
		case sub <- snap:
		default:
		}
	}
}
