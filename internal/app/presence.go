package app

import (
	"github.com/dkeye/Speak/internal/core"
	"github.com/rs/zerolog/log"
)

// Presence pushes the current online-user list to clients. It must run
// synchronously after every registry mutation that changes membership, so a
// client's list is stale for at most one event-processing step.
type Presence struct {
	registry *Registry
}

func NewPresence(reg *Registry) *Presence {
	return &Presence{registry: reg}
}

type onlineUsersMsg struct {
	Type  string            `json:"type"`
	Users []core.OnlineUser `json:"users"`
}

// Broadcast sends update_online_users to every live connection.
func (p *Presence) Broadcast() {
	msg := onlineUsersMsg{Type: "update_online_users", Users: p.registry.Snapshot()}
	conns := p.registry.Connections()
	for _, c := range conns {
		emit(c.Conn, msg)
	}
	log.Debug().Str("module", "app.presence").Int("count", len(conns)).Msg("broadcast online users")
}

// SendTo delivers the current list to one connection, serving an explicit
// get_online_users request.
func (p *Presence) SendTo(conn core.SignalConnection) {
	emit(conn, onlineUsersMsg{Type: "update_online_users", Users: p.registry.Snapshot()})
}
