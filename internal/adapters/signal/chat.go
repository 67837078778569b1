package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avoronov/huddle/internal/protocol"
)

func (s *session) handleChat(data []byte) {
	var p protocol.SendMessage
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		s.sendError(protocol.ErrCodeBadPayload)
		return
	}
	if p.Text == "" {
		s.sendError(protocol.ErrCodeBadPayload)
		return
	}

	s.ctl.Router.OnChat(s.connID, p.Text)
}
