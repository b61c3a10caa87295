package signal

import (
	"encoding/json"

	"github.com/dkeye/Speak/internal/core"
	"github.com/dkeye/Speak/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleCallUser(
	sid core.SessionID,
	conn *wsSignalConn,
	data []byte,
) {
	type callPayload struct {
		Type  string          `json:"type"`
		To    string          `json:"to"`
		Offer json.RawMessage `json:"offer"`
	}
	var p callPayload
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad call-user payload")
		return
	}
	caller, ok := ctl.sender(sid)
	if !ok {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("call-user before user_online")
		return
	}
	if !ctl.limiter.Allow(caller) {
		log.Warn().Str("module", "signal").Str("caller", string(caller)).Msg("call-user rate limited")
		ctl.sendJSON(conn, map[string]any{
			"type":    "call-failed",
			"message": "too many call attempts",
		})
		return
	}
	ctl.Orch.Calls.Initiate(caller, domain.UserID(p.To), p.Offer)
}

func (ctl *SignalWSController) handleAnswerCall(sid core.SessionID, data []byte) {
	type answerPayload struct {
		Type   string          `json:"type"`
		To     string          `json:"to"`
		Answer json.RawMessage `json:"answer"`
	}
	var p answerPayload
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad answer-call payload")
		return
	}
	acceptor, ok := ctl.sender(sid)
	if !ok {
		return
	}
	ctl.Orch.Calls.Accept(acceptor, domain.UserID(p.To), p.Answer)
}

func (ctl *SignalWSController) handleRejectCall(sid core.SessionID, data []byte) {
	type rejectPayload struct {
		Type string `json:"type"`
		To   string `json:"to"`
	}
	var p rejectPayload
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad reject-call payload")
		return
	}
	rejector, ok := ctl.sender(sid)
	if !ok {
		return
	}
	ctl.Orch.Calls.Reject(rejector, domain.UserID(p.To))
}

func (ctl *SignalWSController) handleCallEnded(sid core.SessionID, data []byte) {
	type endPayload struct {
		Type string `json:"type"`
		To   string `json:"to"`
	}
	var p endPayload
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad call-ended payload")
		return
	}
	ender, ok := ctl.sender(sid)
	if !ok {
		return
	}
	ctl.Orch.Calls.End(ender, domain.UserID(p.To))
}
