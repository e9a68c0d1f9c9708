package core

import (
	"github.com/dkeye/demeet/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []SessionID
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	ID() domain.RoomID
	MemberCount() int
	Participants() []domain.ParticipantID

	// AddMember reports false when the room was already closed.
	AddMember(sid SessionID, ms MemberSession) bool
	// RemoveMember returns the removed session and whether the room is now empty.
	RemoveMember(sid SessionID) (MemberSession, bool)
	Broadcast(from SessionID, data Frame) PublishResult
	// CloseIfEmpty atomically marks an empty room closed; a closed room
	// rejects AddMember forever.
	CloseIfEmpty() bool
	Closed() bool
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}

// RoomManager is the process-local room registry.
type RoomManager interface {
	Join(id domain.RoomID, sid SessionID, ms MemberSession)
	Leave(id domain.RoomID, sid SessionID) (domain.ParticipantID, bool)
	Broadcast(id domain.RoomID, from SessionID, data Frame) PublishResult
	MembersOf(id domain.RoomID) []domain.ParticipantID
	Exists(id domain.RoomID) bool
	List() []RoomInfo
}
