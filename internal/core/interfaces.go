package core

import "github.com/avoronov/huddle/internal/domain"

// Frame is an encoded signaling event ready for the wire.
type Frame []byte

// ConnID is the server-assigned handle for one live socket. Allocated at
// accept time, never reused within the process, so a stale id held by a
// peer can only miss, never hit a newer connection.
type ConnID string

// SessionState is the lifecycle of one connection.
// Connecting -> Joined -> (leave) Connecting -> Closed.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateJoined
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// SignalConn abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConn interface {
	TrySend(Frame) error
	Close()
}

// MemberSession is what a room stores and fans out to.
type MemberSession interface {
	Participant() domain.ParticipantID
	Signal() SignalConn
}

// MemberSnap pairs a live session with its connection id, captured under
// the room lock so delivery can happen after release.
type MemberSnap struct {
	Conn    ConnID
	Session MemberSession
}

// PeerInfo is the read-only wire view of a member (no transport fields).
type PeerInfo struct {
	Conn        ConnID               `json:"conn"`
	Participant domain.ParticipantID `json:"participant"`
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}
