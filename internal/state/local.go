package state

import (
	"sync"

	"github.com/prajyotgorlewar/BattleIDE/internal/model"
)

// Client is one live realtime connection.
type Client interface {
	ID() string
	UserID() string
	Send(ev model.Event) error
	Close() error
}

// Registry tracks live connections per user on this instance. A user may hold
// several connections, one per open tab or device.
type Registry struct {
	users map[string]map[string]Client
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]map[string]Client),
	}
}

// Add registers c and reports whether it is the user's first connection.
func (r *Registry) Add(c Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, exists := r.users[c.UserID()]
	if !exists {
		conns = make(map[string]Client)
		r.users[c.UserID()] = conns
	}
	conns[c.ID()] = c
	return !exists
}

// Remove unregisters a connection and reports whether the user has none left.
// It does not close the connection.
func (r *Registry) Remove(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, exists := r.users[userID]
	if !exists {
		return false
	}
	if _, ok := conns[connID]; !ok {
		return false
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.users, userID)
		return true
	}
	return false
}

// Clients returns a copy of the user's connections.
func (r *Registry) Clients(userID string) []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.users[userID]
	out := make([]Client, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

// SendToUser writes ev to every connection of userID and returns how many
// writes succeeded along with the first error.
func (r *Registry) SendToUser(userID string, ev model.Event) (int, error) {
	var (
		sent     int
		firstErr error
	)
	for _, c := range r.Clients(userID) {
		if err := c.Send(ev); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sent++
	}
	return sent, firstErr
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// UserIDs returns every user with at least one connection.
func (r *Registry) UserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, conns := range r.users {
		n += len(conns)
	}
	return n
}

// CloseAll closes and forgets every connection.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, conns := range r.users {
		for _, c := range conns {
			_ = c.Close()
		}
		delete(r.users, userID)
	}
}
