package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/Speak/internal/core"
	"github.com/dkeye/Speak/internal/domain"
	"github.com/rs/zerolog/log"
)

// Handlers for the pass-through control events. Offers, answers and
// candidates are relayed opaquely; the server never parses SDP.

func (ctl *SignalWSController) handleICECandidate(sid core.SessionID, data []byte) {
	type candidatePayload struct {
		Type      string          `json:"type"`
		To        string          `json:"to"`
		Candidate json.RawMessage `json:"candidate"`
	}
	var p candidatePayload
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad ice-candidate payload")
		return
	}
	from, ok := ctl.sender(sid)
	if !ok {
		return
	}
	ctl.Orch.Router.Route(from, domain.UserID(p.To), "ice-candidate", map[string]any{
		"candidate": p.Candidate,
	})
}

func (ctl *SignalWSController) handleToggleMic(sid core.SessionID, data []byte) {
	type togglePayload struct {
		Type    string `json:"type"`
		To      string `json:"to"`
		IsMicOn bool   `json:"isMicOn"`
	}
	var p togglePayload
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad toggle-mic payload")
		return
	}
	from, ok := ctl.sender(sid)
	if !ok {
		return
	}
	ctl.Orch.Router.Route(from, domain.UserID(p.To), "mic-toggled", map[string]any{
		"isMicOn": p.IsMicOn,
	})
}

func (ctl *SignalWSController) handleToggleVideo(sid core.SessionID, data []byte) {
	type togglePayload struct {
		Type      string `json:"type"`
		To        string `json:"to"`
		IsVideoOn bool   `json:"isVideoOn"`
	}
	var p togglePayload
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad toggle-video payload")
		return
	}
	from, ok := ctl.sender(sid)
	if !ok {
		return
	}
	ctl.Orch.Router.Route(from, domain.UserID(p.To), "video-toggled", map[string]any{
		"isVideoOn": p.IsVideoOn,
	})
}

// handleSTTResult relays live transcript text to the peer during a call.
func (ctl *SignalWSController) handleSTTResult(sid core.SessionID, data []byte) {
	type sttPayload struct {
		Type string `json:"type"`
		To   string `json:"to"`
		Text string `json:"text"`
	}
	var p sttPayload
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad stt-result payload")
		return
	}
	from, ok := ctl.sender(sid)
	if !ok {
		return
	}
	ctl.Orch.Router.Route(from, domain.UserID(p.To), "stt-result", map[string]any{
		"text": p.Text,
	})
}

// handleSendTextForTTS converts text to speech through the synthesizer and
// relays the audio. A synthesizer failure drops the event silently.
func (ctl *SignalWSController) handleSendTextForTTS(sid core.SessionID, data []byte) {
	type ttsPayload struct {
		Type string `json:"type"`
		To   string `json:"to"`
		Text string `json:"text"`
		Lang string `json:"lang"`
	}
	var p ttsPayload
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" || p.Text == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad send-text-for-tts payload")
		return
	}
	from, ok := ctl.sender(sid)
	if !ok {
		return
	}
	lang := p.Lang
	if lang == "" {
		lang = ctl.ttsLang
	}
	ctl.Orch.Router.RelayTTS(context.Background(), from, domain.UserID(p.To), p.Text, lang)
}
