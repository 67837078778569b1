// Package protocol defines the JSON event surface of the signaling socket.
// Every frame is an object with a "type" tag; the tag is decoded once at
// the boundary and the rest of the payload is decoded per kind.
package protocol

import (
	"encoding/json"

	"github.com/avoronov/huddle/internal/core"
	"github.com/avoronov/huddle/internal/domain"
	"github.com/pion/webrtc/v4"
)

// Client -> server kinds.
const (
	KindJoinRoom     = "join-room"
	KindLeaveRoom    = "leave-room"
	KindOffer        = "offer"
	KindAnswer       = "answer"
	KindICECandidate = "ice-candidate"
	KindSendMessage  = "send-message"
	KindPing         = "ping"
)

// Server -> client kinds.
const (
	KindJoined         = "joined"
	KindPeerJoined     = "peer-joined"
	KindPeerLeft       = "peer-left"
	KindReceiveMessage = "receive-message"
	KindError          = "error"
	KindPong           = "pong"
)

// Error codes carried by ErrorEvent.
const (
	ErrCodeAlreadyJoined = "already_joined"
	ErrCodeNotInRoom     = "not_in_room"
	ErrCodeBadPayload    = "bad_payload"
	ErrCodeRateLimited   = "rate_limited"
)

// Envelope is the minimal decode used to dispatch on kind.
type Envelope struct {
	Type string `json:"type"`
}

type JoinRoom struct {
	Type        string `json:"type"`
	Room        string `json:"room"`
	Participant string `json:"participant,omitempty"`
}

// Handshake covers offer, answer and ice-candidate. Target is chosen by
// the sender from a prior peer-joined/joined frame. From and Participant
// are always overwritten server-side with the real sender identity; a
// sender-claimed value never survives the relay.
type Handshake struct {
	Type        string                   `json:"type"`
	Target      core.ConnID              `json:"target,omitempty"`
	From        core.ConnID              `json:"from,omitempty"`
	Participant domain.ParticipantID     `json:"participant,omitempty"`
	SDP         string                   `json:"sdp,omitempty"`
	Candidate   *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

type SendMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ReceiveMessage struct {
	Type        string               `json:"type"`
	From        core.ConnID          `json:"from"`
	Participant domain.ParticipantID `json:"participant"`
	Text        string               `json:"text"`
}

// Joined is the reply to the joining connection: its own id plus a
// snapshot of everyone already there, so it can start handshakes without
// waiting for further events.
type Joined struct {
	Type  string          `json:"type"`
	Room  domain.RoomID   `json:"room"`
	Self  core.ConnID     `json:"self"`
	Peers []core.PeerInfo `json:"peers"`
}

// PeerEvent announces a membership change to the rest of the room.
// Carries both ids: the connection id is what handshakes target, the
// participant id is what humans see.
type PeerEvent struct {
	Type        string               `json:"type"`
	Conn        core.ConnID          `json:"conn"`
	Participant domain.ParticipantID `json:"participant"`
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type Pong struct {
	Type string `json:"type"`
}

// Marshal encodes an event for the wire. Encoding our own structs cannot
// fail in practice; the error is kept for the caller's log line.
func Marshal(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	return core.Frame(b), err
}
