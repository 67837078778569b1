package core

import "errors"

var (
	// ErrAlreadyJoined rejects a second join while the connection still
	// occupies a room. Membership is left untouched.
	ErrAlreadyJoined = errors.New("already joined")

	// ErrNotInRoom marks a room-scoped action from a connection with no
	// room. On cleanup paths it is the idempotent no-op case.
	ErrNotInRoom = errors.New("not in room")

	// ErrTargetUnreachable means a targeted relay found no live target.
	// Dropped and logged, never echoed to other connections.
	ErrTargetUnreachable = errors.New("target unreachable")

	// ErrBackpressure is returned by TrySend when the recipient's
	// outbound buffer is full. Delivery is at-most-once; no retry.
	ErrBackpressure = errors.New("backpressure")
)
