package app

import (
	"github.com/dkeye/Speak/internal/core"
	"github.com/dkeye/Speak/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator wires the signaling components together for the transport
// adapter and owns the connection lifecycle paths that touch more than one
// of them.
type Orchestrator struct {
	Registry *Registry
	Presence *Presence
	Calls    *CallCoordinator
	Router   *EventRouter
}

// Connect binds an announced user to its transport session and pushes the
// updated online list to everyone. A previous connection for the same user
// is replaced and its transport closed (last-connect-wins).
func (o *Orchestrator) Connect(sid core.SessionID, user *domain.User, meta map[string]any, conn core.SignalConnection) {
	old := o.Registry.Register(&Connection{User: user, Meta: meta, SID: sid, Conn: conn})
	if old != nil {
		log.Info().Str("module", "app").Str("user_id", string(user.ID)).Str("old_sid", string(old.SID)).Msg("replacing previous connection")
		old.Conn.Close()
	}
	o.Presence.Broadcast()
}

// Disconnect tears down whatever the session owned: the in-flight call
// attempt first, so the peer gets notified while the registry can still
// resolve it, then the registry entry itself. Sessions that never announced
// a user, or were already replaced, are a no-op.
func (o *Orchestrator) Disconnect(sid core.SessionID) {
	user, ok := o.Registry.UserOfSession(sid)
	if !ok {
		return
	}
	o.Calls.DropParty(user)
	if _, ok := o.Registry.Unregister(sid); ok {
		o.Presence.Broadcast()
	}
}
