package dashboard

import (
	"context"
	"sync"

	"github.com/prajyotgorlewar/BattleIDE/internal/client/auth"
	"github.com/prajyotgorlewar/BattleIDE/internal/logger"
	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"go.uber.org/zap"
)

// State is what the dashboard renders. Profile is nil until the first cycle
// finishes; after that it is either the real profile or the sentinel.
type State struct {
	Profile     *model.User
	Leaderboard []model.LeaderboardEntry
	Error       string
	Loading     bool
}

// Loader runs fetch cycles and keeps the latest State.
type Loader struct {
	fetcher Fetcher
	log     *zap.Logger

	mu       sync.Mutex
	state    State
	gen      uint64
	cancel   context.CancelFunc
	closed   bool
	subs     map[uint64]chan State
	nextSub  uint64
	inflight sync.WaitGroup
}

// NewLoader returns an idle Loader whose state has no profile yet.
func NewLoader(fetcher Fetcher, log *zap.Logger) *Loader {
	return &Loader{
		fetcher: fetcher,
		log:     logger.OrNop(log).Named("dashboard.loader"),
		state:   State{Leaderboard: []model.LeaderboardEntry{}},
		subs:    make(map[uint64]chan State),
	}
}

func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Load runs one cycle for a and blocks until it finishes. It returns false
// without touching the network when auth is not loaded or the loader is closed.
// A cycle superseded by a later Load, or by Close, is discarded.
func (l *Loader) Load(ctx context.Context, a auth.State) bool {
	c, ok := l.begin(ctx, a)
	if !ok {
		return false
	}
	l.run(c, a)
	return true
}

type cycle struct {
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64
}

// begin supersedes any cycle in flight. A loaded state starts a new cycle
// and marks the state as loading; any other state only abandons the old one.
func (l *Loader) begin(ctx context.Context, a auth.State) (cycle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return cycle{}, false
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++

	if !a.Loaded {
		l.log.Debug("auth not loaded, skipping fetch")
		if l.state.Loading {
			l.state.Loading = false
			l.publishLocked()
		}
		return cycle{}, false
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.state.Loading = true
	l.state.Error = ""
	l.inflight.Add(1)
	l.publishLocked()
	return cycle{ctx: ctx, cancel: cancel, gen: l.gen}, true
}

func (l *Loader) run(c cycle, a auth.State) {
	defer l.inflight.Done()
	defer c.cancel()

	result := l.fetcher.Fetch(c.ctx, a.Tokens)

	l.mu.Lock()
	defer l.mu.Unlock()

	if c.gen != l.gen || l.closed {
		l.log.Debug("discarding superseded result", zap.Uint64("cycle", c.gen))
		return
	}
	l.cancel = nil
	l.apply(result)
	l.publishLocked()
}

func (l *Loader) apply(result Result) {
	switch r := result.(type) {
	case Success:
		profile := r.Profile
		l.state = State{Profile: &profile, Leaderboard: r.Leaderboard}
	case Failure:
		profile := r.Profile
		l.state = State{Profile: &profile, Leaderboard: r.Leaderboard, Error: r.Message()}
	}
}

// Watch starts a fresh cycle for every auth state received, cancelling the
// one in flight. It returns when ctx ends or states is closed, after the last
// cycle has finished.
func (l *Loader) Watch(ctx context.Context, states <-chan auth.State) {
	defer l.inflight.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-states:
			if !ok {
				return
			}
			if c, ok := l.begin(ctx, a); ok {
				go l.run(c, a)
			}
		}
	}
}

// Subscribe yields the current state and every later one; only the latest is
// buffered.
func (l *Loader) Subscribe() (<-chan State, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan State, 1)
	ch <- l.state
	if l.closed {
		close(ch)
		return ch, func() {}
	}

	id := l.nextSub
	l.nextSub++
	l.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if sub, ok := l.subs[id]; ok {
				delete(l.subs, id)
				close(sub)
			}
		})
	}
}

// Close cancels the cycle in flight and stops publishing.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.state.Loading = false
	for id, sub := range l.subs {
		delete(l.subs, id)
		close(sub)
	}
}

func (l *Loader) publishLocked() {
	st := l.state
	for _, sub := range l.subs {
		select {
		case <-sub:
		default:
		}
		sub <- st
	}
}
