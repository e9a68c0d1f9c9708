package core

import "github.com/dkeye/demeet/internal/domain"

// SessionID identifies one live connection (a participant handle).
type SessionID string

// MemberSession binds the caller-supplied participant id and its transport
// endpoint. This is what a room stores and fans out to.
type MemberSession interface {
	Participant() domain.ParticipantID
	Signal() SignalConnection
}

type memberSession struct {
	participant domain.ParticipantID
	signal      SignalConnection
}

func NewMemberSession(participant domain.ParticipantID, signal SignalConnection) MemberSession {
	return &memberSession{participant: participant, signal: signal}
}

func (m *memberSession) Participant() domain.ParticipantID { return m.participant }
func (m *memberSession) Signal() SignalConnection          { return m.signal }
