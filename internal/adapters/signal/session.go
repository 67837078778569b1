package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avoronov/huddle/internal/core"
	"github.com/avoronov/huddle/internal/protocol"
)

// session is the adapter-side handle for one connection: ids, the raw
// transport and the client token used for rate limiting.
type session struct {
	ctl    *Controller
	connID core.ConnID
	token  string
	conn   *wsConn
}

// dispatch decodes the envelope once and routes by kind. Unknown kinds
// are logged and ignored so protocol additions stay backward compatible.
func (s *session) dispatch(data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(s.connID)).Msg("bad json")
		s.sendError(protocol.ErrCodeBadPayload)
		return
	}

	switch env.Type {
	case protocol.KindJoinRoom:
		s.handleJoin(data)
	case protocol.KindLeaveRoom:
		s.handleLeave()
	case protocol.KindOffer, protocol.KindAnswer, protocol.KindICECandidate:
		s.handleHandshake(data)
	case protocol.KindSendMessage:
		s.handleChat(data)
	case protocol.KindPing:
		s.handlePing()
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (s *session) sendJSON(v any) {
	frame, err := protocol.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := s.conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(s.connID)).Msg("send dropped")
	}
}

func (s *session) sendError(code string) {
	s.sendJSON(protocol.ErrorEvent{Type: protocol.KindError, Error: code})
}
