package app

import (
	"context"
	"errors"

	"github.com/dkeye/demeet/internal/core"
	"github.com/dkeye/demeet/internal/domain"
	"github.com/dkeye/demeet/internal/obs"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownSession = errors.New("unknown session")
	ErrOutOfState     = errors.New("event not allowed in current state")
)

// Admission gates join-room. A nil Admission admits everyone.
type Admission interface {
	Admit(ctx context.Context, subject domain.IdentityID, room domain.RoomID) error
}

// Orchestrator is the presence relay. Calls for one session must come from a
// single goroutine (its read pump); different sessions run concurrently.
type Orchestrator struct {
	Registry  *Registry
	Rooms     core.RoomManager
	Policy    Policy
	Admission Admission
}

func NewOrchestrator(rooms core.RoomManager, policy Policy, admission Admission) *Orchestrator {
	return &Orchestrator{
		Registry:  NewRegistry(),
		Rooms:     rooms,
		Policy:    policy,
		Admission: admission,
	}
}

// Connect registers a fresh connection in state Connected.
func (o *Orchestrator) Connect(sid core.SessionID, signal core.SignalConnection, subject domain.IdentityID, cancel context.CancelFunc) {
	o.Registry.BindSignal(sid, signal, subject, cancel)
	obs.ConnectedSessions.Inc()
}

func (o *Orchestrator) JoinRoom(ctx context.Context, sid core.SessionID, room domain.RoomID, participant domain.ParticipantID) error {
	if room == "" || participant == "" {
		return domain.ErrInvalidInput
	}
	snap, ok := o.Registry.Get(sid)
	if !ok {
		return ErrUnknownSession
	}
	if snap.State == StateJoined && snap.Room == room {
		return nil
	}
	if o.Admission != nil {
		if err := o.Admission.Admit(ctx, snap.Subject, room); err != nil {
			return err
		}
	}
	if snap.State == StateJoined {
		o.leave(sid)
	}

	signal, ok := o.Registry.Signal(sid)
	if !ok {
		return ErrUnknownSession
	}
	o.Rooms.Join(room, sid, core.NewMemberSession(participant, signal))
	if !o.Registry.MarkJoined(sid, room, participant) {
		o.Rooms.Leave(room, sid)
		return ErrOutOfState
	}
	o.broadcast(room, sid, encodePeerEvent(EventUserConnected, participant))
	return nil
}

// Toggle relays a call-control event to the rest of the joined room.
func (o *Orchestrator) Toggle(sid core.SessionID, t EventType, room domain.RoomID, participant domain.ParticipantID) error {
	if !IsToggle(t) || participant == "" {
		return domain.ErrInvalidInput
	}
	snap, err := o.joined(sid, room)
	if err != nil {
		return err
	}
	o.broadcast(snap.Room, sid, encodePeerEvent(t, participant))
	return nil
}

// LeaveRoom handles an explicit user-leave. The connection stays open.
func (o *Orchestrator) LeaveRoom(sid core.SessionID, room domain.RoomID) error {
	if _, err := o.joined(sid, room); err != nil {
		return err
	}
	o.leave(sid)
	return nil
}

// Disconnect runs on every connection close and always leaves the joined
// room. Repeated calls are no-ops.
func (o *Orchestrator) Disconnect(sid core.SessionID) {
	snap, ok := o.Registry.Unbind(sid)
	if !ok {
		return
	}
	obs.ConnectedSessions.Dec()
	if snap.State != StateJoined {
		return
	}
	o.Rooms.Leave(snap.Room, sid)
	o.broadcast(snap.Room, sid, encodePeerEvent(EventUserLeave, snap.Participant))
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(snap.Room)).Msg("left room on close")
}

// Kick closes the session's transport; its read pump then calls Disconnect.
func (o *Orchestrator) Kick(sid core.SessionID) bool {
	return o.Registry.Cancel(sid)
}

// EvictRoom kicks every session joined to room and returns how many it kicked.
func (o *Orchestrator) EvictRoom(room domain.RoomID) int {
	n := 0
	for _, snap := range o.Registry.MembersOfRoom(room) {
		if o.Kick(snap.SID) {
			n++
		}
	}
	log.Info().Str("module", "app.orch").Str("room", string(room)).Int("kicked", n).Msg("evicted room")
	return n
}

func (o *Orchestrator) joined(sid core.SessionID, room domain.RoomID) (SessionSnapshot, error) {
	snap, ok := o.Registry.Get(sid)
	if !ok {
		return SessionSnapshot{}, ErrUnknownSession
	}
	if snap.State != StateJoined {
		return SessionSnapshot{}, ErrOutOfState
	}
	if room != "" && room != snap.Room {
		return SessionSnapshot{}, domain.ErrInvalidInput
	}
	return snap, nil
}

func (o *Orchestrator) leave(sid core.SessionID) {
	room, participant, ok := o.Registry.MarkLeft(sid)
	if !ok {
		return
	}
	o.Rooms.Leave(room, sid)
	o.broadcast(room, sid, encodePeerEvent(EventUserLeave, participant))
}

func (o *Orchestrator) broadcast(room domain.RoomID, from core.SessionID, frame core.Frame) {
	res := o.Rooms.Broadcast(room, from, frame)
	if len(res.Dropped) == 0 {
		return
	}
	obs.RelayDropped.Add(float64(len(res.Dropped)))
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case KickMember:
			log.Warn().Str("module", "app.orch").Str("room", string(room)).Str("sid", string(slow)).Msg("kicking slow member")
			o.Kick(slow)
		case DropFrame, NoAction:
		}
	}
}
