package signal

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Speak/internal/app"
	"github.com/dkeye/Speak/internal/core"
	"github.com/stretchr/testify/require"
)

func newTestController() *SignalWSController {
	reg := app.NewRegistry()
	orch := &app.Orchestrator{
		Registry: reg,
		Presence: app.NewPresence(reg),
		Calls:    app.NewCallCoordinator(reg, nil),
		Router:   app.NewEventRouter(reg, nil),
	}
	return NewSignalWSController(orch, 32768, "en", 10, time.Minute)
}

// newTestConn builds a connection whose outbound frames can be drained from
// the send channel without a live websocket behind it.
func newTestConn() *wsSignalConn {
	return &wsSignalConn{send: make(chan core.Frame, 32)}
}

func drain(t *testing.T, c *wsSignalConn) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case fr := <-c.send:
			var m map[string]any
			require.NoError(t, json.Unmarshal(fr, &m))
			out = append(out, m)
		default:
			return out
		}
	}
}

func announce(t *testing.T, ctl *SignalWSController, sid, userID, name string) *wsSignalConn {
	t.Helper()
	conn := newTestConn()
	ctl.handleSignal(core.SessionID(sid), conn, []byte(`{"type":"user_online","user_id":"`+userID+`","name":"`+name+`"}`))
	return conn
}

func TestDispatchUserOnline(t *testing.T) {
	ctl := newTestController()
	conn := announce(t, ctl, "s1", "alice", "Alice")

	evs := drain(t, conn)
	require.Len(t, evs, 1)
	require.Equal(t, "update_online_users", evs[0]["type"])
	require.Len(t, evs[0]["users"], 1)

	_, ok := ctl.Orch.Registry.Lookup("alice")
	require.True(t, ok)
}

func TestDispatchCallFlow(t *testing.T) {
	ctl := newTestController()
	alice := announce(t, ctl, "s1", "alice", "Alice")
	bob := announce(t, ctl, "s2", "bob", "Bob")
	drain(t, alice)
	drain(t, bob)

	ctl.handleSignal("s1", alice, []byte(`{"type":"call-user","to":"bob","offer":{"sdp":"o"}}`))
	evs := drain(t, bob)
	require.Len(t, evs, 1)
	require.Equal(t, "incoming-call", evs[0]["type"])

	ctl.handleSignal("s2", bob, []byte(`{"type":"answer-call","to":"alice","answer":{"sdp":"a"}}`))
	evs = drain(t, alice)
	require.Len(t, evs, 1)
	require.Equal(t, "call-accepted", evs[0]["type"])

	ctl.handleSignal("s1", alice, []byte(`{"type":"call-ended","to":"bob"}`))
	evs = drain(t, bob)
	require.Len(t, evs, 1)
	require.Equal(t, "call-ended", evs[0]["type"])
}

func TestDispatchRelayEvents(t *testing.T) {
	ctl := newTestController()
	alice := announce(t, ctl, "s1", "alice", "Alice")
	bob := announce(t, ctl, "s2", "bob", "Bob")
	drain(t, alice)
	drain(t, bob)

	ctl.handleSignal("s1", alice, []byte(`{"type":"toggle-mic","to":"bob","isMicOn":true}`))
	evs := drain(t, bob)
	require.Len(t, evs, 1)
	require.Equal(t, "mic-toggled", evs[0]["type"])
	require.Equal(t, "alice", evs[0]["from"])
	require.Equal(t, true, evs[0]["isMicOn"])

	ctl.handleSignal("s1", alice, []byte(`{"type":"stt-result","to":"bob","text":"hello"}`))
	evs = drain(t, bob)
	require.Len(t, evs, 1)
	require.Equal(t, "stt-result", evs[0]["type"])
	require.Equal(t, "hello", evs[0]["text"])
}

func TestDispatchGuards(t *testing.T) {
	ctl := newTestController()
	conn := newTestConn()

	// Bad JSON, unknown type and missing "to" must all be quiet no-ops.
	ctl.handleSignal("s1", conn, []byte(`{not json`))
	ctl.handleSignal("s1", conn, []byte(`{"type":"warp-drive"}`))
	ctl.handleSignal("s1", conn, []byte(`{"type":"call-user","offer":{}}`))
	require.Empty(t, drain(t, conn))

	// Signaling before user_online has no sender and is dropped.
	ctl.handleSignal("s1", conn, []byte(`{"type":"toggle-mic","to":"bob","isMicOn":true}`))
	require.Empty(t, drain(t, conn))

	// An invalid announcement gets an error frame but keeps the connection.
	ctl.handleSignal("s1", conn, []byte(`{"type":"user_online","user_id":"","name":"x"}`))
	evs := drain(t, conn)
	require.Len(t, evs, 1)
	require.Equal(t, "error", evs[0]["type"])
}

func TestSessionIDsArePerConnection(t *testing.T) {
	// The client token cookie is shared by every tab and page refresh of one
	// browser; each upgrade must still get its own session handle, or a
	// replaced socket's late disconnect would evict the fresh one.
	s1 := newSessionID("ct-1")
	s2 := newSessionID("ct-1")

	require.NotEqual(t, s1, s2)
	require.True(t, strings.HasPrefix(string(s1), "ct-1/"))
	require.True(t, strings.HasPrefix(string(s2), "ct-1/"))
}

func TestDispatchCallUserRateLimited(t *testing.T) {
	reg := app.NewRegistry()
	orch := &app.Orchestrator{
		Registry: reg,
		Presence: app.NewPresence(reg),
		Calls:    app.NewCallCoordinator(reg, nil),
		Router:   app.NewEventRouter(reg, nil),
	}
	ctl := NewSignalWSController(orch, 32768, "en", 1, time.Minute)

	alice := announce(t, ctl, "s1", "alice", "Alice")
	drain(t, alice)

	// The first initiation spends the whole budget; the target being offline
	// does not matter to the limiter.
	ctl.handleSignal("s1", alice, []byte(`{"type":"call-user","to":"ghost","offer":{}}`))
	evs := drain(t, alice)
	require.Len(t, evs, 1)
	require.Equal(t, "call-failed", evs[0]["type"])
	require.Equal(t, "user is not online", evs[0]["message"])

	ctl.handleSignal("s1", alice, []byte(`{"type":"call-user","to":"ghost","offer":{}}`))
	evs = drain(t, alice)
	require.Len(t, evs, 1)
	require.Equal(t, "call-failed", evs[0]["type"])
	require.Equal(t, "too many call attempts", evs[0]["message"])
}

func TestDispatchPing(t *testing.T) {
	ctl := newTestController()
	conn := newTestConn()

	ctl.handleSignal("s1", conn, []byte(`{"type":"ping"}`))
	evs := drain(t, conn)
	require.Len(t, evs, 1)
	require.Equal(t, "pong", evs[0]["type"])
}

func TestDispatchGetOnlineUsers(t *testing.T) {
	ctl := newTestController()
	alice := announce(t, ctl, "s1", "alice", "Alice")
	bob := announce(t, ctl, "s2", "bob", "Bob")
	drain(t, alice)
	drain(t, bob)

	ctl.handleSignal("s1", alice, []byte(`{"type":"get_online_users"}`))
	evs := drain(t, alice)
	require.Len(t, evs, 1)
	require.Equal(t, "update_online_users", evs[0]["type"])
	require.Len(t, evs[0]["users"], 2)
	require.Empty(t, drain(t, bob))
}
