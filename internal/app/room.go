package app

import (
	"sync"

	"github.com/avoronov/huddle/internal/core"
	"github.com/avoronov/huddle/internal/domain"
)

// room is one exclusive-access scope. join/leave on the same room are
// mutually exclusive; snapshots may run concurrently with each other but
// never interleave a mutation's partial view.
type room struct {
	id domain.RoomID

	mu      sync.RWMutex
	closed  bool
	members map[core.ConnID]core.MemberSession
}

func newRoom(id domain.RoomID) *room {
	return &room{
		id:      id,
		members: make(map[core.ConnID]core.MemberSession),
	}
}

// add inserts the member and snapshots the others. Reports false when the
// room already closed, in which case the caller must retry against a
// fresh room.
func (r *room) add(connID core.ConnID, sess core.MemberSession) ([]core.MemberSnap, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false
	}
	others := make([]core.MemberSnap, 0, len(r.members))
	for id, ms := range r.members {
		others = append(others, core.MemberSnap{Conn: id, Session: ms})
	}
	r.members[connID] = sess
	return others, true
}

// remove deletes the member and snapshots who is left. When the set goes
// empty the room closes for good; a racing join observes the flag and
// retries, so a closed room never gains a member.
func (r *room) remove(connID core.ConnID) (remaining []core.MemberSnap, closed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, connID)
	remaining = make([]core.MemberSnap, 0, len(r.members))
	for id, ms := range r.members {
		remaining = append(remaining, core.MemberSnap{Conn: id, Session: ms})
	}
	if len(r.members) == 0 {
		r.closed = true
	}
	return remaining, r.closed
}

func (r *room) snapshot() []core.MemberSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.MemberSnap, 0, len(r.members))
	for id, ms := range r.members {
		out = append(out, core.MemberSnap{Conn: id, Session: ms})
	}
	return out
}

func (r *room) memberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}
