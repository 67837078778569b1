package signal

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avoronov/huddle/internal/domain"
	"github.com/avoronov/huddle/internal/protocol"
)

func (s *session) handleJoin(data []byte) {
	var p protocol.JoinRoom
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		s.sendError(protocol.ErrCodeBadPayload)
		return
	}

	roomID, err := domain.NewRoomID(p.Room)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(s.connID)).Msg("join rejected")
		s.sendError(protocol.ErrCodeBadPayload)
		return
	}
	participant, err := domain.NewParticipantID(p.Participant)
	if err != nil {
		s.sendError(protocol.ErrCodeBadPayload)
		return
	}
	// Identity is optional on the wire; presence events still need one.
	if participant == "" {
		participant = domain.ParticipantID(uuid.NewString())
	}

	if !s.ctl.Limiter.Allow(s.token) {
		log.Warn().Str("module", "signal").Str("conn", string(s.connID)).Msg("join rate limited")
		s.sendError(protocol.ErrCodeRateLimited)
		return
	}

	log.Info().Str("module", "signal").Str("conn", string(s.connID)).
		Str("room", string(roomID)).Str("participant", string(participant)).Msg("join")
	s.ctl.Router.OnJoin(s.connID, roomID, participant)
}

// handleLeave exits the current room without dropping the transport; the
// client may join another room on the same socket.
func (s *session) handleLeave() {
	log.Info().Str("module", "signal").Str("conn", string(s.connID)).Msg("leave")
	s.ctl.Router.OnLeaveOrDisconnect(s.connID)
}
