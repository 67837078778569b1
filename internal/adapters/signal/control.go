package signal

import "github.com/avoronov/huddle/internal/protocol"

func (s *session) handlePing() {
	s.sendJSON(protocol.Pong{Type: protocol.KindPong})
}
