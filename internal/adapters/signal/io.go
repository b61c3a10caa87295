package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Speak/internal/core"
	"github.com/dkeye/Speak/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *wsSignalConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, c *wsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		cancel()
		ctl.Orch.Disconnect(sid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(sid, c, data)
		}
	}
}

// handleSignal dispatches one inbound envelope. A bad payload never fails
// the connection: the guard logs, optionally answers with an error frame,
// and the pumps keep running.
func (ctl *SignalWSController) handleSignal(sid core.SessionID, c *wsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "user_online":
		ctl.handleUserOnline(sid, c, data)
	case "get_online_users":
		ctl.handleGetOnlineUsers(c)
	case "ping":
		ctl.handlePing(c)
	case "call-user":
		ctl.handleCallUser(sid, c, data)
	case "answer-call":
		ctl.handleAnswerCall(sid, data)
	case "reject-call":
		ctl.handleRejectCall(sid, data)
	case "call-ended":
		ctl.handleCallEnded(sid, data)
	case "ice-candidate":
		ctl.handleICECandidate(sid, data)
	case "toggle-mic":
		ctl.handleToggleMic(sid, data)
	case "toggle-video":
		ctl.handleToggleVideo(sid, data)
	case "stt-result":
		ctl.handleSTTResult(sid, data)
	case "send-text-for-tts":
		ctl.handleSendTextForTTS(sid, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) sendJSON(c *wsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

// sender resolves the announced user behind a session. Events arriving
// before user_online have no sender and are dropped by the callers.
func (ctl *SignalWSController) sender(sid core.SessionID) (domain.UserID, bool) {
	return ctl.Orch.Registry.UserOfSession(sid)
}
