package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dkeye/Speak/internal/core"
	"github.com/dkeye/Speak/internal/domain"
	"github.com/rs/zerolog/log"
)

// pairKey identifies an attempt by its unordered user pair.
type pairKey struct{ a, b domain.UserID }

func keyFor(x, y domain.UserID) pairKey {
	if y < x {
		x, y = y, x
	}
	return pairKey{x, y}
}

// CallCoordinator drives the per-call signaling state machine. Attempts are
// keyed by the unordered caller/callee pair and a user may be party to at
// most one non-terminal attempt; a conflicting initiate is answered with a
// busy failure instead of silently double-ringing.
//
// The coordinator stores user ids only. Live connections are re-resolved
// through the registry before every send because the session handle may have
// been replaced or removed since the previous step.
type CallCoordinator struct {
	mu       sync.Mutex
	registry *Registry
	history  core.CallHistory
	attempts map[pairKey]*domain.CallAttempt
	byUser   map[domain.UserID]pairKey
}

func NewCallCoordinator(reg *Registry, history core.CallHistory) *CallCoordinator {
	return &CallCoordinator{
		registry: reg,
		history:  history,
		attempts: make(map[pairKey]*domain.CallAttempt),
		byUser:   make(map[domain.UserID]pairKey),
	}
}

type callFailedMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Initiate starts a new attempt in RINGING and forwards incoming-call to the
// callee. An absent callee fails the attempt immediately with exactly one
// call-failed back to the caller and no message to anyone else.
func (c *CallCoordinator) Initiate(caller, callee domain.UserID, offer json.RawMessage) {
	callerConn, ok := c.registry.Lookup(caller)
	if !ok {
		// Sender vanished between read and dispatch; nobody to answer.
		return
	}

	c.mu.Lock()
	if _, busy := c.byUser[caller]; busy {
		c.mu.Unlock()
		emit(callerConn.Conn, callFailedMsg{"call-failed", "you are already in a call"})
		return
	}
	if _, busy := c.byUser[callee]; busy {
		c.mu.Unlock()
		emit(callerConn.Conn, callFailedMsg{"call-failed", "user is busy"})
		return
	}

	calleeConn, ok := c.registry.Lookup(callee)
	if !ok {
		c.mu.Unlock()
		log.Info().Str("module", "app.calls").Str("caller", string(caller)).Str("callee", string(callee)).Msg("callee not online")
		emit(callerConn.Conn, callFailedMsg{"call-failed", "user is not online"})
		return
	}

	key := keyFor(caller, callee)
	c.attempts[key] = &domain.CallAttempt{
		Caller:    caller,
		Callee:    callee,
		State:     domain.CallRinging,
		CreatedAt: time.Now(),
	}
	c.byUser[caller] = key
	c.byUser[callee] = key
	c.mu.Unlock()

	log.Info().Str("module", "app.calls").Str("caller", string(caller)).Str("callee", string(callee)).Msg("ringing")
	emit(calleeConn.Conn, struct {
		Type  string          `json:"type"`
		From  core.OnlineUser `json:"from"`
		Offer json.RawMessage `json:"offer"`
	}{"incoming-call", callerConn.View(), offer})
}

// Accept moves a ringing attempt to ACTIVE, forwards call-accepted to the
// caller and persists the call record. Persistence is fire-and-forget: a
// store failure is logged and the call continues.
func (c *CallCoordinator) Accept(acceptor, caller domain.UserID, answer json.RawMessage) {
	c.mu.Lock()
	a, ok := c.attempts[keyFor(acceptor, caller)]
	if !ok || a.Callee != acceptor || !a.State.CanTransition(domain.CallAccepted) {
		c.mu.Unlock()
		log.Warn().Str("module", "app.calls").Str("acceptor", string(acceptor)).Str("caller", string(caller)).Msg("accept without ringing attempt")
		return
	}

	callerConn, live := c.registry.Lookup(a.Caller)
	if !live {
		// Caller vanished between ring and answer; nothing to deliver.
		a.State = domain.CallFailed
		c.removeLocked(a)
		c.mu.Unlock()
		log.Warn().Str("module", "app.calls").Str("caller", string(caller)).Msg("accept: caller gone")
		return
	}

	// There is no setup step between accepted and active: the answer going
	// back to the caller is what completes the exchange.
	a.State = domain.CallActive
	callerID, calleeID := a.Caller, a.Callee
	c.mu.Unlock()

	log.Info().Str("module", "app.calls").Str("caller", string(callerID)).Str("callee", string(calleeID)).Msg("call accepted")
	emit(callerConn.Conn, struct {
		Type   string          `json:"type"`
		Answer json.RawMessage `json:"answer"`
	}{"call-accepted", answer})

	if c.history != nil {
		go func(at time.Time) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := c.history.Insert(ctx, callerID, calleeID, at); err != nil {
				log.Error().Err(err).Str("module", "app.calls").Msg("call history insert")
			}
		}(time.Now())
	}
}

// Reject finishes a ringing attempt with call-rejected back to the caller.
func (c *CallCoordinator) Reject(rejector, caller domain.UserID) {
	c.mu.Lock()
	a, ok := c.attempts[keyFor(rejector, caller)]
	if !ok || a.Callee != rejector || !a.State.CanTransition(domain.CallRejected) {
		c.mu.Unlock()
		log.Warn().Str("module", "app.calls").Str("rejector", string(rejector)).Str("caller", string(caller)).Msg("reject without ringing attempt")
		return
	}
	a.State = domain.CallRejected
	c.removeLocked(a)
	c.mu.Unlock()

	log.Info().Str("module", "app.calls").Str("caller", string(caller)).Str("callee", string(rejector)).Msg("call rejected")
	if conn, live := c.registry.Lookup(caller); live {
		emit(conn.Conn, struct {
			Type string `json:"type"`
		}{"call-rejected"})
	}
}

// End terminates a non-terminal attempt and forwards call-ended to the other
// party. Hanging up while still ringing is allowed.
func (c *CallCoordinator) End(ender domain.UserID, other domain.UserID) {
	c.mu.Lock()
	a, ok := c.attempts[keyFor(ender, other)]
	if !ok || !a.State.CanTransition(domain.CallEnded) {
		c.mu.Unlock()
		return
	}
	if _, party := a.Other(ender); !party {
		c.mu.Unlock()
		return
	}
	a.State = domain.CallEnded
	c.removeLocked(a)
	c.mu.Unlock()

	log.Info().Str("module", "app.calls").Str("ender", string(ender)).Str("other", string(other)).Msg("call ended")
	if conn, live := c.registry.Lookup(other); live {
		emit(conn.Conn, struct {
			Type string `json:"type"`
		}{"call-ended"})
	}
}

// DropParty terminates whatever non-terminal attempt user is part of, after
// a transport disconnect. The remaining party is notified best-effort: a
// vanished callee fails the ring back to the caller, everything else reads
// as a normal hang-up.
func (c *CallCoordinator) DropParty(user domain.UserID) {
	c.mu.Lock()
	key, ok := c.byUser[user]
	if !ok {
		c.mu.Unlock()
		return
	}
	a := c.attempts[key]
	other, _ := a.Other(user)

	var note any
	if a.State == domain.CallRinging && user == a.Callee {
		a.State = domain.CallFailed
		note = callFailedMsg{"call-failed", "user disconnected"}
	} else {
		a.State = domain.CallEnded
		note = struct {
			Type string `json:"type"`
		}{"call-ended"}
	}
	c.removeLocked(a)
	c.mu.Unlock()

	log.Info().Str("module", "app.calls").Str("user", string(user)).Str("other", string(other)).Str("state", string(a.State)).Msg("party dropped")
	if other == user {
		return
	}
	if conn, live := c.registry.Lookup(other); live {
		emit(conn.Conn, note)
	}
}

// AttemptBetween returns a copy of the non-terminal attempt between the two
// users, if one exists.
func (c *CallCoordinator) AttemptBetween(x, y domain.UserID) (domain.CallAttempt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.attempts[keyFor(x, y)]
	if !ok {
		return domain.CallAttempt{}, false
	}
	return *a, true
}

// removeLocked discards a finished attempt from both indexes.
func (c *CallCoordinator) removeLocked(a *domain.CallAttempt) {
	delete(c.attempts, keyFor(a.Caller, a.Callee))
	delete(c.byUser, a.Caller)
	delete(c.byUser, a.Callee)
}
