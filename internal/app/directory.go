package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avoronov/huddle/internal/core"
	"github.com/avoronov/huddle/internal/domain"
)

// Directory maps room ids to live member sets. Rooms are implicit: the
// first join creates one, the last leave destroys it. The directory lock
// covers only the room table and the occupancy index; membership itself
// is guarded per room so unrelated rooms never contend.
type Directory struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*room
	owner map[core.ConnID]*room
}

func NewDirectory() *Directory {
	return &Directory{
		rooms: make(map[domain.RoomID]*room),
		owner: make(map[core.ConnID]*room),
	}
}

// Join adds the connection to the room, creating it if absent, and returns
// a snapshot of the other members for the presence broadcast. A connection
// may occupy at most one room; a second join fails with ErrAlreadyJoined
// and leaves the existing membership untouched.
func (d *Directory) Join(roomID domain.RoomID, connID core.ConnID, sess core.MemberSession) ([]core.MemberSnap, error) {
	for {
		d.mu.Lock()
		if _, ok := d.owner[connID]; ok {
			d.mu.Unlock()
			return nil, core.ErrAlreadyJoined
		}
		r, ok := d.rooms[roomID]
		if !ok {
			r = newRoom(roomID)
			d.rooms[roomID] = r
			log.Info().Str("module", "app.directory").Str("room", string(roomID)).Msg("room created")
		}
		d.owner[connID] = r
		d.mu.Unlock()

		others, ok := r.add(connID, sess)
		if ok {
			log.Info().Str("module", "app.directory").Str("room", string(roomID)).
				Str("conn", string(connID)).Int("peers", len(others)).Msg("joined room")
			return others, nil
		}

		// Lost the race against the last leave: the room closed between
		// the table lookup and the member insert. Retry with a fresh one.
		d.mu.Lock()
		delete(d.owner, connID)
		if d.rooms[roomID] == r {
			delete(d.rooms, roomID)
		}
		d.mu.Unlock()
	}
}

// Leave removes the connection from whatever room it occupies and returns
// the room id plus the remaining members for the departure broadcast.
// ErrNotInRoom is the idempotent-cleanup case, not a failure.
func (d *Directory) Leave(connID core.ConnID) (domain.RoomID, []core.MemberSnap, error) {
	d.mu.Lock()
	r, ok := d.owner[connID]
	if !ok {
		d.mu.Unlock()
		return "", nil, core.ErrNotInRoom
	}
	delete(d.owner, connID)
	d.mu.Unlock()

	remaining, closed := r.remove(connID)
	if closed {
		d.mu.Lock()
		if d.rooms[r.id] == r {
			delete(d.rooms, r.id)
		}
		d.mu.Unlock()
		log.Info().Str("module", "app.directory").Str("room", string(r.id)).Msg("room destroyed")
	}
	log.Info().Str("module", "app.directory").Str("room", string(r.id)).
		Str("conn", string(connID)).Int("peers", len(remaining)).Msg("left room")
	return r.id, remaining, nil
}

// RoomOf reports which room a connection currently occupies.
func (d *Directory) RoomOf(connID core.ConnID) (domain.RoomID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.owner[connID]
	if !ok {
		return "", false
	}
	return r.id, true
}

// MembersOf snapshots a room's membership for routing. Missing room means
// an empty list; a room with no members cannot exist.
func (d *Directory) MembersOf(roomID domain.RoomID) []core.MemberSnap {
	d.mu.RLock()
	r, ok := d.rooms[roomID]
	d.mu.RUnlock()
	if !ok {
		return nil
	}
	return r.snapshot()
}

// List summarizes live rooms for the listing endpoint.
func (d *Directory) List() []core.RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(d.rooms))
	for id, r := range d.rooms {
		out = append(out, core.RoomInfo{ID: id, MemberCount: r.memberCount()})
	}
	return out
}
