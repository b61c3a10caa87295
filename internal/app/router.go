package app

import (
	"context"
	"encoding/base64"

	"github.com/dkeye/Speak/internal/core"
	"github.com/dkeye/Speak/internal/domain"
	"github.com/rs/zerolog/log"
)

// withSender lists the outbound events whose payload must carry the sender
// identity, so the receiving client knows which peer toggled or negotiated.
var withSender = map[string]bool{
	"ice-candidate": true,
	"mic-toggled":   true,
	"video-toggled": true,
}

// EventRouter forwards control events that are not part of the call
// lifecycle machine to a target user's live connection.
type EventRouter struct {
	registry *Registry
	tts      core.Synthesizer
}

func NewEventRouter(reg *Registry, tts core.Synthesizer) *EventRouter {
	return &EventRouter{registry: reg, tts: tts}
}

// Route resolves target through the registry and delivers the event. An
// offline target is a silent drop: the sender gets nothing back. The return
// value exists for tests and logging only.
func (r *EventRouter) Route(sender, target domain.UserID, event string, fields map[string]any) bool {
	conn, ok := r.registry.Lookup(target)
	if !ok {
		log.Debug().Str("module", "app.router").Str("event", event).Str("to", string(target)).Msg("target offline, dropped")
		return false
	}

	msg := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		msg[k] = v
	}
	msg["type"] = event
	if withSender[event] {
		msg["from"] = string(sender)
	}
	emit(conn.Conn, msg)
	return true
}

// RelayTTS synthesizes text and routes the audio to the target as
// play-audio-message. The synthesizer is called synchronously, outside any
// lock; on failure the event is dropped without delivery.
func (r *EventRouter) RelayTTS(ctx context.Context, sender, target domain.UserID, text, lang string) {
	if r.tts == nil {
		return
	}
	audio, err := r.tts.Synthesize(ctx, text, lang)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("to", string(target)).Msg("tts synthesize, event dropped")
		return
	}
	r.Route(sender, target, "play-audio-message", map[string]any{
		"audio": base64.StdEncoding.EncodeToString(audio),
		"text":  text,
	})
}
