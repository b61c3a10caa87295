package app

import (
	"encoding/json"

	"github.com/dkeye/Speak/internal/core"
	"github.com/rs/zerolog/log"
)

// emit encodes v and hands it to the connection's send queue. Backpressure
// and closed-connection errors are logged and swallowed: a slow or dead peer
// must never fail the event that triggered the send.
func emit(conn core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app").Msg("emit marshal")
		return
	}
	if err := conn.TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "app").Msg("emit dropped")
	}
}
