package domain

// RoomID equals the meeting or session id the room was opened for.
type (
	RoomID        string
	ParticipantID string
)
