package domain

import "errors"

const MaxParticipantIDLen = 36

var ErrParticipantTooLong = errors.New("participant id too long")

// ParticipantID is the client-supplied label for a human user. It is not
// guaranteed unique: two tabs may claim the same one. Routing decisions
// never key on it; the server-assigned connection id does that.
type ParticipantID string

// NewParticipantID validates a client-supplied id. Empty is allowed; the
// caller substitutes a generated one.
func NewParticipantID(raw string) (ParticipantID, error) {
	if len(raw) > MaxParticipantIDLen {
		return "", ErrParticipantTooLong
	}
	return ParticipantID(raw), nil
}
