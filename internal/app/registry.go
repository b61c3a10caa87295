package app

import (
	"sync"

	"github.com/dkeye/Speak/internal/core"
	"github.com/dkeye/Speak/internal/domain"
	"github.com/rs/zerolog/log"
)

// Connection binds a logical user identity to its live transport endpoint
// plus the presence metadata announced with it.
type Connection struct {
	User *domain.User
	Meta map[string]any
	SID  core.SessionID
	Conn core.SignalConnection
}

// View is the public projection of this connection for presence lists and
// incoming-call notifications.
func (c *Connection) View() core.OnlineUser {
	return core.OnlineUser{
		ID:              c.User.ID,
		Name:            c.User.Name,
		Email:           c.User.Email,
		IsDeaf:          c.User.IsDeaf,
		ProfileImageURL: c.User.ProfileImageURL,
		Meta:            c.Meta,
	}
}

// Registry is the single owner of the user -> connection mapping. The
// reverse session index is kept in lockstep so disconnect handling stays
// O(1) instead of scanning the forward map.
type Registry struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]*Connection
	bySID  map[core.SessionID]domain.UserID
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[domain.UserID]*Connection),
		bySID:  make(map[core.SessionID]domain.UserID),
	}
}

// Register inserts or replaces the connection for c.User.ID
// (last-connect-wins). The replaced connection, if any, is returned so the
// caller can close its transport; its session id is dropped from the reverse
// index, which turns a late disconnect of the old session into a no-op.
func (r *Registry) Register(c *Connection) *Connection {
	r.mu.Lock()
	old := r.byUser[c.User.ID]
	if old != nil {
		delete(r.bySID, old.SID)
	}
	r.byUser[c.User.ID] = c
	r.bySID[c.SID] = c.User.ID
	r.mu.Unlock()

	log.Info().Str("module", "app.registry").Str("user_id", string(c.User.ID)).Str("sid", string(c.SID)).Msg("registered connection")
	return old
}

// Unregister removes the connection bound to sid and returns its user id.
// Unknown or stale session ids are a no-op, not an error: transports may
// report the same disconnect twice, and a replaced connection's disconnect
// must not evict the user's new entry.
func (r *Registry) Unregister(sid core.SessionID) (domain.UserID, bool) {
	r.mu.Lock()
	uid, ok := r.bySID[sid]
	if ok {
		delete(r.bySID, sid)
		delete(r.byUser, uid)
	}
	r.mu.Unlock()

	if ok {
		log.Info().Str("module", "app.registry").Str("user_id", string(uid)).Str("sid", string(sid)).Msg("unregistered connection")
	}
	return uid, ok
}

func (r *Registry) Lookup(id domain.UserID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[id]
	return c, ok
}

func (r *Registry) UserOfSession(sid core.SessionID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uid, ok := r.bySID[sid]
	return uid, ok
}

// Snapshot returns the public view of every live connection. Iteration order
// is map order; consumers must not depend on it.
func (r *Registry) Snapshot() []core.OnlineUser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.OnlineUser, 0, len(r.byUser))
	for _, c := range r.byUser {
		out = append(out, c.View())
	}
	return out
}

// Connections returns the current set of live connections for fan-out.
func (r *Registry) Connections() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, 0, len(r.byUser))
	for _, c := range r.byUser {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
