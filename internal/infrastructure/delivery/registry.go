package delivery

import (
	"sync"

	"github.com/gorilla/websocket"
)

// connection is one live websocket session. Writes are serialized through mu:
// gorilla/websocket allows a single concurrent writer per connection.
type connection struct {
	userID string
	ws     *websocket.Conn
	mu     sync.Mutex
}

// Registry tracks live connections per user. A user may hold several
// connections (multiple tabs/devices); entries are pruned when a write fails
// or the read loop observes a close.
type Registry struct {
	mu    sync.RWMutex
	conns map[string][]*connection
}

// NewRegistry creates an empty connection registry
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string][]*connection),
	}
}

// Add registers a connection for the user
func (r *Registry) Add(c *connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.userID] = append(r.conns[c.userID], c)
}

// Remove drops a connection; the user's entry disappears with its last
// connection
func (r *Registry) Remove(c *connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.conns[c.userID]
	filtered := conns[:0]
	for _, existing := range conns {
		if existing != c {
			filtered = append(filtered, existing)
		}
	}
	if len(filtered) == 0 {
		delete(r.conns, c.userID)
	} else {
		r.conns[c.userID] = filtered
	}
}

// Lookup returns the user's live connections
func (r *Registry) Lookup(userID string) []*connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*connection(nil), r.conns[userID]...)
}

// All returns every live connection
func (r *Registry) All() []*connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*connection
	for _, conns := range r.conns {
		out = append(out, conns...)
	}
	return out
}

// ConnectedUsers returns the ids of users with at least one live connection
func (r *Registry) ConnectedUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	return out
}
