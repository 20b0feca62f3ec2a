package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDialer records every open and close in the order they happen.
type fakeDialer struct {
	mu       sync.Mutex
	log      []string
	channels []*fakeChannel
	failFor  string
}

func (d *fakeDialer) Open(endpoint, identity string) (Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if identity == d.failFor {
		return nil, errors.New("bad endpoint")
	}
	ch := &fakeChannel{dialer: d, identity: identity, endpoint: endpoint, events: make(chan model.Event)}
	d.channels = append(d.channels, ch)
	d.log = append(d.log, "open:"+identity)
	return ch, nil
}

func (d *fakeDialer) record(entry string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = append(d.log, entry)
}

func (d *fakeDialer) entries() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.log...)
}

func (d *fakeDialer) count(prefix string) int {
	n := 0
	for _, e := range d.entries() {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

type fakeChannel struct {
	dialer   *fakeDialer
	identity string
	endpoint string
	events   chan model.Event

	mu     sync.Mutex
	closes int
}

func (c *fakeChannel) Identity() string                        { return c.identity }
func (c *fakeChannel) Events() <-chan model.Event              { return c.events }
func (c *fakeChannel) Send(context.Context, model.Event) error { return nil }
func (c *fakeChannel) Status() Status                          { return StatusConnected }

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	c.dialer.record("close:" + c.identity)
	return nil
}

func (c *fakeChannel) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

func recvSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func TestManagerOpensOnIdentity(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("http://localhost:4000", d)

	assert.Equal(t, StateUnbound, m.State())
	assert.Nil(t, m.Current())

	require.NoError(t, m.SetIdentity("u1"))

	assert.Equal(t, StateOpen, m.State())
	require.NotNil(t, m.Current())
	assert.Equal(t, "u1", m.Current().Identity())
	assert.Equal(t, "http://localhost:4000", d.channels[0].endpoint)
}

func TestManagerSignOutThenSignIn(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("http://localhost:4000", d)

	require.NoError(t, m.SetIdentity("u1"))
	require.NoError(t, m.SetIdentity(""))
	assert.Equal(t, StateClosed, m.State())
	assert.Nil(t, m.Current())

	require.NoError(t, m.SetIdentity("u2"))

	assert.Equal(t, 2, d.count("open:"))
	assert.Equal(t, 1, d.count("close:"))
	assert.Equal(t, []string{"open:u1", "close:u1", "open:u2"}, d.entries())
	assert.Equal(t, "u2", m.Current().Identity())
	assert.NotSame(t, d.channels[0], d.channels[1])

	require.NoError(t, m.Close())
	assert.Equal(t, 2, d.count("close:"))
}

func TestManagerSwitchesIdentityCloseBeforeOpen(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("http://localhost:4000", d)

	require.NoError(t, m.SetIdentity("alice"))
	require.NoError(t, m.SetIdentity("bob"))

	assert.Equal(t, []string{"open:alice", "close:alice", "open:bob"}, d.entries())
	assert.Equal(t, StateOpen, m.State())
}

func TestManagerSameIdentityIsNoop(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("http://localhost:4000", d)

	require.NoError(t, m.SetIdentity("u1"))
	require.NoError(t, m.SetIdentity("u1"))
	require.NoError(t, m.SetIdentity(""))
	require.NoError(t, m.SetIdentity(""))

	assert.Equal(t, []string{"open:u1", "close:u1"}, d.entries())
}

func TestManagerCloseIsIdempotent(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("http://localhost:4000", d)

	require.NoError(t, m.SetIdentity("u1"))
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.Equal(t, 1, d.channels[0].closeCount())
	assert.Equal(t, StateClosed, m.State())
	assert.ErrorIs(t, m.SetIdentity("u2"), ErrManagerClosed)
	assert.Equal(t, 1, d.count("open:"))
}

func TestManagerCloseWithoutChannel(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("http://localhost:4000", d)

	require.NoError(t, m.Close())
	assert.Empty(t, d.entries())
	assert.Equal(t, StateUnbound, m.State())
}

func TestManagerOpenFailureLeavesNoChannel(t *testing.T) {
	d := &fakeDialer{failFor: "broken"}
	m := NewManager("http://localhost:4000", d)

	require.NoError(t, m.SetIdentity("u1"))
	err := m.SetIdentity("broken")
	require.Error(t, err)

	assert.Nil(t, m.Current())
	assert.Equal(t, StateClosed, m.State())

	// the same identity can be retried
	d.failFor = ""
	require.NoError(t, m.SetIdentity("broken"))
	assert.Equal(t, "broken", m.Current().Identity())
}

func TestManagerAtMostOneOpenChannel(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("http://localhost:4000", d)

	identities := []string{"a", "b", "", "c", "c", "", "", "d", "a"}
	for _, id := range identities {
		require.NoError(t, m.SetIdentity(id))

		open := 0
		for _, ch := range d.channels {
			if ch.closeCount() == 0 {
				open++
			}
		}
		assert.LessOrEqual(t, open, 1)
	}
	require.NoError(t, m.Close())

	for _, ch := range d.channels {
		assert.Equal(t, 1, ch.closeCount(), ch.identity)
	}
}

func TestManagerConcurrentIdentityChanges(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("http://localhost:4000", d)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := ""
				if (i+j)%3 != 0 {
					id = string(rune('a' + (i+j)%5))
				}
				_ = m.SetIdentity(id)
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, m.Close())

	// every open is followed by exactly one close, never interleaved
	var open string
	for _, e := range d.entries() {
		switch {
		case e[:5] == "open:":
			require.Empty(t, open, "open while %s still open", open)
			open = e[5:]
		case e[:6] == "close:":
			require.Equal(t, open, e[6:])
			open = ""
		}
	}
	assert.Empty(t, open)
}

func TestManagerSubscribe(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("http://localhost:4000", d)

	snaps, cancel := m.Subscribe()
	defer cancel()

	first := recvSnapshot(t, snaps)
	assert.Equal(t, StateUnbound, first.State)

	require.NoError(t, m.SetIdentity("u1"))
	open := recvSnapshot(t, snaps)
	assert.Equal(t, StateOpen, open.State)
	assert.Equal(t, "u1", open.Identity)
	assert.Same(t, d.channels[0], open.Channel)

	require.NoError(t, m.Close())
	closed := recvSnapshot(t, snaps)
	assert.Equal(t, StateClosed, closed.State)
	assert.Nil(t, closed.Channel)

	_, ok := <-snaps
	assert.False(t, ok)
}

func TestManagerSubscribeKeepsLatest(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("http://localhost:4000", d)

	snaps, cancel := m.Subscribe()
	defer cancel()

	require.NoError(t, m.SetIdentity("a"))
	require.NoError(t, m.SetIdentity("b"))
	require.NoError(t, m.SetIdentity("c"))

	latest := recvSnapshot(t, snaps)
	assert.Equal(t, "c", latest.Identity)
}

func TestManagerWatch(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("http://localhost:4000", d)

	identities := make(chan string)
	done := make(chan error, 1)
	go func() { done <- m.Watch(context.Background(), identities) }()

	identities <- "u1"
	identities <- ""
	identities <- "u2"
	close(identities)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not return")
	}

	assert.Equal(t, []string{"open:u1", "close:u1", "open:u2", "close:u2"}, d.entries())
	assert.ErrorIs(t, m.SetIdentity("u3"), ErrManagerClosed)
}

func TestManagerWatchStopsOnContext(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager("http://localhost:4000", d)

	ctx, cancel := context.WithCancel(context.Background())
	identities := make(chan string)
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx, identities) }()

	identities <- "u1"
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watch did not return")
	}
	assert.Equal(t, 1, d.channels[0].closeCount())
}
