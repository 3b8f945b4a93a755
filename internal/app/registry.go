package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Pointing/internal/core"
	"github.com/dkeye/Pointing/internal/domain"
)

type sessionEntry struct {
	Rooms  map[domain.RoomID]struct{}
	Conn   core.SignalConnection
	Cancel context.CancelFunc
}

// Registry tracks every live connection and which rooms' broadcasts it
// subscribed to. It is the coordinator's multicast bookkeeping; the
// authoritative membership lives in the room store. A session may listen
// to several rooms at once, mirroring store membership.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[core.SessionID]*sessionEntry)}
}

func (r *Registry) Bind(sid core.SessionID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{
		Rooms:  make(map[domain.RoomID]struct{}),
		Conn:   conn,
		Cancel: cancel,
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound session")
}

func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbound session")
}

func (r *Registry) Conn(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Conn, true
	}
	return nil, false
}

// Subscribe adds the session to a room's multicast group.
func (r *Registry) Subscribe(sid core.SessionID, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.Rooms[roomID] = struct{}{}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(roomID)).Msg("subscribed")
	return true
}

// Unsubscribe removes the session from one room's multicast group; other
// subscriptions stay intact.
func (r *Registry) Unsubscribe(sid core.SessionID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		delete(e.Rooms, roomID)
	}
}

// Rooms lists the rooms the session currently listens to.
func (r *Registry) Rooms(sid core.SessionID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	out := make([]domain.RoomID, 0, len(e.Rooms))
	for roomID := range e.Rooms {
		out = append(out, roomID)
	}
	return out
}

// Snap is one subscriber of a fan-out set.
type Snap struct {
	SID  core.SessionID
	Conn core.SignalConnection
}

// Subscribers returns the sessions currently listening to a room.
func (r *Registry) Subscribers(roomID domain.RoomID) []Snap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Snap
	for sid, e := range r.sessions {
		if _, ok := e.Rooms[roomID]; ok {
			out = append(out, Snap{SID: sid, Conn: e.Conn})
		}
	}
	return out
}

// All returns every live connection, for lobby-wide broadcasts.
func (r *Registry) All() []core.SignalConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SignalConnection, 0, len(r.sessions))
	for _, e := range r.sessions {
		out = append(out, e.Conn)
	}
	return out
}

// Cancel aborts the session's pumps, if it is still bound.
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	return true
}
