package core

import (
	"context"
	"time"

	"github.com/dkeye/Speak/internal/domain"
)

// Frame is a raw outbound payload, already encoded.
type Frame []byte

// SessionID identifies one live transport connection, independent of user
// identity.
type SessionID string

// SignalConnection abstracts for a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// OnlineUser is the public presence view of a connection (no transport
// fields). This is what gets pushed in update_online_users.
type OnlineUser struct {
	ID              domain.UserID  `json:"user_id"`
	Name            string         `json:"name"`
	Email           string         `json:"email,omitempty"`
	IsDeaf          bool           `json:"isDeaf"`
	ProfileImageURL string         `json:"profile_image_url,omitempty"`
	Meta            map[string]any `json:"meta,omitempty"`
}

// CallRecord is one persisted call-history row.
type CallRecord struct {
	ID        int64         `json:"id"`
	CallerID  domain.UserID `json:"caller_id"`
	CalleeID  domain.UserID `json:"callee_id"`
	CreatedAt time.Time     `json:"created_at"`
}

// CallHistory persists accepted calls. A failed insert is logged by the
// caller and never blocks or fails the signaling path.
type CallHistory interface {
	Insert(ctx context.Context, caller, callee domain.UserID, at time.Time) error
	RecentForUser(ctx context.Context, user domain.UserID, limit int) ([]CallRecord, error)
}

// Synthesizer converts text to spoken audio (encoded MP3).
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}
