package app

import (
	"context"
	"sync"

	"github.com/dkeye/demeet/internal/core"
	"github.com/dkeye/demeet/internal/domain"
	"github.com/rs/zerolog/log"
)

// ConnState is the relay state of one connection.
type ConnState int

const (
	StateConnected ConnState = iota
	StateJoined
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateJoined:
		return "joined"
	default:
		return "closed"
	}
}

type sessionEntry struct {
	Signal      core.SignalConnection
	Subject     domain.IdentityID
	State       ConnState
	Room        domain.RoomID
	Participant domain.ParticipantID
	Cancel      context.CancelFunc
}

// SessionSnapshot is a copy of a registry entry, safe to read without locks.
type SessionSnapshot struct {
	SID         core.SessionID
	Subject     domain.IdentityID
	State       ConnState
	Room        domain.RoomID
	Participant domain.ParticipantID
}

// Registry tracks every open relay connection and the room it joined.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
	}
}

func (r *Registry) BindSignal(sid core.SessionID, signal core.SignalConnection, subject domain.IdentityID, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Signal: signal, Subject: subject, State: StateConnected, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound signal")
}

func (r *Registry) Get(sid core.SessionID) (SessionSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return SessionSnapshot{}, false
	}
	return snapshot(sid, e), true
}

func (r *Registry) Signal(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Signal, true
	}
	return nil, false
}

// MarkJoined moves a Connected session to Joined.
func (r *Registry) MarkJoined(sid core.SessionID, room domain.RoomID, participant domain.ParticipantID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || e.State != StateConnected {
		return false
	}
	e.State = StateJoined
	e.Room = room
	e.Participant = participant
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("joined room")
	return true
}

// MarkLeft moves a Joined session back to Connected and returns what it left.
func (r *Registry) MarkLeft(sid core.SessionID) (domain.RoomID, domain.ParticipantID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || e.State != StateJoined {
		return "", "", false
	}
	room, participant := e.Room, e.Participant
	e.State = StateConnected
	e.Room = ""
	e.Participant = ""
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("removed room association")
	return room, participant, true
}

// Unbind removes the session, releases its context and returns its last
// state. Only the first call for a sid reports ok.
func (r *Registry) Unbind(sid core.SessionID) (SessionSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return SessionSnapshot{}, false
	}
	snap := snapshot(sid, e)
	e.State = StateClosed
	delete(r.sessions, sid)
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
	return snap, true
}

func (r *Registry) MembersOfRoom(room domain.RoomID) []SessionSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SessionSnapshot, 0)
	for sid, e := range r.sessions {
		if e.State == StateJoined && e.Room == room {
			out = append(out, snapshot(sid, e))
		}
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Cancel stops the session's pumps and closes its transport.
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
	if e.Signal != nil {
		e.Signal.Close()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}

func snapshot(sid core.SessionID, e *sessionEntry) SessionSnapshot {
	return SessionSnapshot{
		SID:         sid,
		Subject:     e.Subject,
		State:       e.State,
		Room:        e.Room,
		Participant: e.Participant,
	}
}
