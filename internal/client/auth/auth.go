// Package auth models the client's view of the identity provider: whether the
// session is loaded, who is signed in and how to get a bearer token.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prajyotgorlewar/BattleIDE/internal/jwt"
)

var ErrNoToken = errors.New("no token available")

// TokenSource supplies short-lived bearer credentials.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken always returns the same credential.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// JWTSource mints a fresh token for UserID on every call.
type JWTSource struct {
	Manager *jwt.JWTManager
	UserID  string
	TTL     time.Duration
}

func (s JWTSource) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return s.Manager.GenerateToken(s.UserID, ttl)
}

// State is one observation of the identity provider.
type State struct {
	Loaded bool
	UserID string
	Tokens TokenSource
}

// Identity is the signed-in user id, or empty when signed out or not loaded.
func (s State) Identity() string {
	if !s.Loaded {
		return ""
	}
	return s.UserID
}

// Provider holds the current State and fans changes out to subscribers.
type Provider struct {
	mu      sync.Mutex
	state   State
	subs    map[uint64]chan State
	nextSub uint64
}

func NewProvider(initial State) *Provider {
	return &Provider{state: initial, subs: make(map[uint64]chan State)}
}

func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Set publishes s to every subscriber. Slow subscribers only see the latest state.
func (p *Provider) Set(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state = s
	for _, sub := range p.subs {
		select {
		case <-sub:
		default:
		}
		sub <- s
	}
}

// Subscribe returns a channel that first yields the current state and then
// every later one, until cancel is called.
func (p *Provider) Subscribe() (<-chan State, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	ch := make(chan State, 1)
	ch <- p.state
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subs, id)
			close(ch)
		})
	}
}

// Identities projects the state stream onto identity values, suppressing
// repeats. The returned channel closes when ctx ends.
func (p *Provider) Identities(ctx context.Context) <-chan string {
	states, cancel := p.Subscribe()
	out := make(chan string)

	go func() {
		defer close(out)
		defer cancel()

		last, first := "", true
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-states:
				id := s.Identity()
				if !first && id == last {
					continue
				}
				first, last = false, id
				select {
				case out <- id:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
