// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

const MaxRoomIDLen = 64

var (
	ErrRoomIDEmpty   = errors.New("room id empty")
	ErrRoomIDTooLong = errors.New("room id too long")
)

// RoomID is a caller-supplied name. There is no creation step: a room
// exists exactly while it has members.
type RoomID string

// NewRoomID avoids raw casts in adapters and keeps validation in one place.
func NewRoomID(raw string) (RoomID, error) {
	if len(raw) == 0 {
		return "", ErrRoomIDEmpty
	}
	if len(raw) > MaxRoomIDLen {
		return "", ErrRoomIDTooLong
	}
	return RoomID(raw), nil
}
