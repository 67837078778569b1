package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avoronov/huddle/internal/protocol"
)

// handleHandshake relays offer/answer/ice-candidate frames. The server
// never interprets SDP or candidates; it only rewrites the sender
// identity and forwards to the named target connection.
func (s *session) handleHandshake(data []byte) {
	var hs protocol.Handshake
	if err := json.Unmarshal(data, &hs); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad handshake payload")
		s.sendError(protocol.ErrCodeBadPayload)
		return
	}
	if hs.Target == "" {
		s.sendError(protocol.ErrCodeBadPayload)
		return
	}

	log.Debug().Str("module", "signal").Str("kind", hs.Type).
		Str("conn", string(s.connID)).Str("target", string(hs.Target)).Msg("handshake relay")
	s.ctl.Router.OnHandshake(s.connID, hs)
}
