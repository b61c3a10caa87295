package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Speak/internal/app"
	"github.com/dkeye/Speak/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrBackpressure = errors.New("backpressure")

// SignalWSController owns the websocket side of the signaling surface: one
// read/write pump pair per connection, flat JSON envelopes discriminated by
// a "type" field.
type SignalWSController struct {
	Orch *app.Orchestrator

	limiter   *CallRateLimiter
	readLimit int64
	ttsLang   string
}

func NewSignalWSController(orch *app.Orchestrator, readLimit int64, ttsLang string, callLimit int, callWindow time.Duration) *SignalWSController {
	return &SignalWSController{
		Orch:      orch,
		limiter:   NewCallRateLimiter(callLimit, callWindow),
		readLimit: readLimit,
		ttsLang:   ttsLang,
	}
}

// newSessionID mints the handle for one live socket. The client token alone
// is browser-wide and shared by every tab and refresh, so each upgrade gets
// its own suffix; otherwise a replaced socket's late disconnect would carry
// the same id as the fresh one and evict it.
func newSessionID(clientToken string) core.SessionID {
	return core.SessionID(clientToken + "/" + uuid.NewString())
}

type wsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and starts the pumps. The user is not
// registered yet at this point; presence begins when the client announces
// itself with user_online.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := newSessionID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	if ctl.readLimit > 0 {
		ws.SetReadLimit(ctl.readLimit)
	}

	conn := &wsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}
