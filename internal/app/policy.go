package app

import "github.com/avoronov/huddle/internal/core"

type BackpressureAction int

const (
	DropFrame BackpressureAction = iota
	KickMember
	NoAction
)

// Policy decides what happens to a recipient whose outbound buffer is
// full. Delivery is at-most-once, so retrying is never an option.
type Policy interface {
	OnBackpressure(member core.MemberSnap) BackpressureAction
}

// DropPolicy drops the frame and moves on. WebRTC establishment retries
// at a higher layer, so a lost signaling frame costs a round trip, not
// correctness.
type DropPolicy struct{}

func (DropPolicy) OnBackpressure(core.MemberSnap) BackpressureAction {
	return DropFrame
}

// KickPolicy evicts peers that cannot drain their buffer. Useful where a
// stalled member is worse than a dropped one.
type KickPolicy struct{}

func (KickPolicy) OnBackpressure(core.MemberSnap) BackpressureAction {
	return KickMember
}
