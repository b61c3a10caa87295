package signal

import (
	"encoding/json"

	"github.com/dkeye/Speak/internal/core"
	"github.com/dkeye/Speak/internal/domain"
	"github.com/rs/zerolog/log"
)

// handleUserOnline registers the announced identity for this session and
// triggers the presence broadcast. Re-announcing replaces the previous
// connection for the same user id.
func (ctl *SignalWSController) handleUserOnline(
	sid core.SessionID,
	conn *wsSignalConn,
	data []byte,
) {
	type onlinePayload struct {
		Type            string         `json:"type"`
		UserID          string         `json:"user_id"`
		Name            string         `json:"name"`
		Email           string         `json:"email"`
		IsDeaf          bool           `json:"isDeaf"`
		ProfileImageURL string         `json:"profile_image_url"`
		Meta            map[string]any `json:"meta"`
	}
	var p onlinePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad user_online payload")
		ctl.sendJSON(conn, map[string]any{
			"type":  "error",
			"error": "bad_payload",
		})
		return
	}

	user, err := domain.NewUser(domain.UserID(p.UserID), p.Name)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("user_online rejected")
		ctl.sendJSON(conn, map[string]any{
			"type":  "error",
			"error": err.Error(),
		})
		return
	}
	user.Email = p.Email
	user.IsDeaf = p.IsDeaf
	user.ProfileImageURL = p.ProfileImageURL

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("user_id", p.UserID).Str("name", p.Name).Msg("user online")
	ctl.Orch.Connect(sid, user, p.Meta, conn)
}

// handleGetOnlineUsers answers with the current list, to this connection
// only.
func (ctl *SignalWSController) handleGetOnlineUsers(conn *wsSignalConn) {
	ctl.Orch.Presence.SendTo(conn)
}
