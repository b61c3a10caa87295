package domain

import "time"

// CallState is the lifecycle state of one caller->callee signaling exchange.
type CallState string

const (
	CallRinging  CallState = "ringing"
	CallAccepted CallState = "accepted"
	CallActive   CallState = "active"
	CallRejected CallState = "rejected"
	CallFailed   CallState = "failed"
	CallEnded    CallState = "ended"
)

// IsTerminal reports whether the attempt is finished and may be discarded.
func (s CallState) IsTerminal() bool {
	switch s {
	case CallRejected, CallFailed, CallEnded:
		return true
	}
	return false
}

// CanTransition reports whether the signaling state machine allows s -> next.
// Ending while still ringing is legal: a caller can hang up before the callee
// answers.
func (s CallState) CanTransition(next CallState) bool {
	switch s {
	case CallRinging:
		return next == CallAccepted || next == CallRejected || next == CallFailed || next == CallEnded
	case CallAccepted:
		return next == CallActive || next == CallFailed || next == CallEnded
	case CallActive:
		return next == CallFailed || next == CallEnded
	}
	return false
}

// CallAttempt is one in-flight call. It holds user ids only, never transport
// handles: the live connection must be re-resolved by identity before every
// send.
type CallAttempt struct {
	Caller    UserID
	Callee    UserID
	State     CallState
	CreatedAt time.Time
}

// Other returns the counterpart of id in this attempt.
func (a *CallAttempt) Other(id UserID) (UserID, bool) {
	switch id {
	case a.Caller:
		return a.Callee, true
	case a.Callee:
		return a.Caller, true
	}
	return "", false
}
