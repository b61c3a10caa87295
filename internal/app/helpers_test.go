package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Speak/internal/core"
	"github.com/dkeye/Speak/internal/domain"
	"github.com/stretchr/testify/require"
)

// fakeConn records every frame handed to it so tests can assert on the exact
// event stream a client would have seen.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrConnClosed
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// events decodes all recorded frames into generic maps.
func (f *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, fr := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(fr, &m))
		out = append(out, m)
	}
	return out
}

// eventsOfType filters the recorded stream by the "type" discriminator.
func (f *fakeConn) eventsOfType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, m := range f.events(t) {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

var ErrConnClosed = errConnClosed{}

type errConnClosed struct{}

func (errConnClosed) Error() string { return "connection closed" }

type historyEntry struct {
	caller, callee domain.UserID
}

// fakeHistory captures inserts on a channel so tests can wait for the
// fire-and-forget persistence goroutine.
type fakeHistory struct {
	inserts chan historyEntry
	fail    bool
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{inserts: make(chan historyEntry, 4)}
}

func (h *fakeHistory) Insert(_ context.Context, caller, callee domain.UserID, _ time.Time) error {
	h.inserts <- historyEntry{caller, callee}
	if h.fail {
		return ErrConnClosed
	}
	return nil
}

func (h *fakeHistory) RecentForUser(context.Context, domain.UserID, int) ([]core.CallRecord, error) {
	return nil, nil
}

func (h *fakeHistory) waitInsert(t *testing.T) historyEntry {
	t.Helper()
	select {
	case e := <-h.inserts:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for history insert")
		return historyEntry{}
	}
}

// register is shorthand for announcing a user on a fresh fake connection.
func register(reg *Registry, id domain.UserID, name string) *fakeConn {
	conn := &fakeConn{}
	reg.Register(&Connection{
		User: &domain.User{ID: id, Name: name},
		SID:  core.SessionID("sid-" + string(id)),
		Conn: conn,
	})
	return conn
}
