package chat

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
)

// Registry maps user identities to their single active connection. It is the
// only shared mutable structure in the process; all mutation goes through the
// internal lock. Absence of a registration means "unreachable now", nothing
// more.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		clients: map[string]*Client{},
		log:     log,
	}
}

// Register replaces any prior registration for the user (last-connect-wins).
// The displaced connection is closed so its read loop winds down.
func (r *Registry) Register(userID string, conn ConnLike) *Client {
	c := &Client{UserID: userID, conn: conn}
	r.mu.Lock()
	old := r.clients[userID]
	r.clients[userID] = c
	r.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	r.log.Info("user connected", "user", userID, "active", r.Count())
	return c
}

// Unregister removes the client only if it is still the current registration
// for its user. A stale client (already replaced by a newer connection) is a
// no-op, so a late disconnect cannot evict the live socket.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	cur, ok := r.clients[c.UserID]
	removed := ok && cur == c
	if removed {
		delete(r.clients, c.UserID)
	}
	r.mu.Unlock()
	if removed {
		r.log.Info("user disconnected", "user", c.UserID, "active", r.Count())
	}
}

func (r *Registry) IsConnected(userID string) bool {
	r.mu.RLock()
	_, ok := r.clients[userID]
	r.mu.RUnlock()
	return ok
}

// Send attempts a direct push. Any transport failure unregisters the user and
// reports false so the caller can take the offline path; it never panics or
// returns an error.
func (r *Registry) Send(userID string, payload any) bool {
	r.mu.RLock()
	c := r.clients[userID]
	r.mu.RUnlock()
	if c == nil {
		return false
	}

	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Error("unmarshalable push payload", "user", userID, "err", err)
		return false
	}
	if err := c.Write(data); err != nil {
		r.log.Warn("push failed, dropping connection", "user", userID, "err", err)
		r.Unregister(c)
		_ = c.Close()
		return false
	}
	return true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Active lists connected user ids, sorted for stable logs.
func (r *Registry) Active() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.clients))
	for id := range r.clients {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
