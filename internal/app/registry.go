package app

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avoronov/huddle/internal/core"
	"github.com/avoronov/huddle/internal/domain"
)

// connEntry is the registry's view of one live connection. It doubles as
// the core.MemberSession stored in rooms.
type connEntry struct {
	id     core.ConnID
	signal core.SignalConn
	cancel context.CancelFunc

	mu          sync.RWMutex
	participant domain.ParticipantID
	state       core.SessionState

	teardown sync.Once
}

func (e *connEntry) Participant() domain.ParticipantID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.participant
}

func (e *connEntry) Signal() core.SignalConn { return e.signal }

// Registry tracks every live connection. Ids come from uuid, so they are
// unique for the process lifetime and a reconnect never inherits a stale
// target.
type Registry struct {
	mu      sync.RWMutex
	entries map[core.ConnID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[core.ConnID]*connEntry)}
}

// Register admits a connection in the Connecting state and hands back its id.
func (r *Registry) Register(signal core.SignalConn, cancel context.CancelFunc) core.ConnID {
	id := core.ConnID(uuid.NewString())
	e := &connEntry{
		id:     id,
		signal: signal,
		cancel: cancel,
		state:  core.StateConnecting,
	}
	r.mu.Lock()
	r.entries[id] = e
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("registered connection")
	return id
}

// Unregister is idempotent: transport close and explicit leave can race,
// and the second caller must see a no-op.
func (r *Registry) Unregister(id core.ConnID) {
	r.mu.Lock()
	_, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if ok {
		log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unregistered connection")
	}
}

func (r *Registry) Exists(id core.ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// Session returns the live session for targeted delivery.
func (r *Registry) Session(id core.ConnID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e, true
}

func (r *Registry) State(id core.ConnID) core.SessionState {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return core.StateClosed
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// SetParticipant records the identity supplied at join time.
func (r *Registry) SetParticipant(id core.ConnID, p domain.ParticipantID) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.participant = p
	e.mu.Unlock()
}

// MarkJoined moves Connecting -> Joined. Reports whether it applied.
func (r *Registry) MarkJoined(id core.ConnID) bool {
	return r.transition(id, core.StateConnecting, core.StateJoined)
}

// MarkConnecting moves Joined -> Connecting after an explicit leave; the
// transport stays open and the connection may join another room.
func (r *Registry) MarkConnecting(id core.ConnID) bool {
	return r.transition(id, core.StateJoined, core.StateConnecting)
}

func (r *Registry) transition(id core.ConnID, from, to core.SessionState) bool {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != from {
		return false
	}
	e.state = to
	log.Debug().Str("module", "app.registry").Str("conn", string(id)).
		Str("from", from.String()).Str("to", to.String()).Msg("state transition")
	return true
}

// ShutdownOnce coalesces explicit close and transport close: cleanup runs
// exactly once per connection, then the entry goes terminal and away.
func (r *Registry) ShutdownOnce(id core.ConnID, cleanup func()) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	e.teardown.Do(func() {
		if cleanup != nil {
			cleanup()
		}
		e.mu.Lock()
		e.state = core.StateClosed
		e.mu.Unlock()
		if e.cancel != nil {
			e.cancel()
		}
		r.Unregister(id)
	})
}

// Cancel aborts a connection's pumps; the read loop's teardown then runs
// the normal disconnect path.
func (r *Registry) Cancel(id core.ConnID) bool {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.cancel != nil {
		e.cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("canceled connection")
	return true
}
