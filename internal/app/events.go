package app

import (
	"encoding/json"

	"github.com/dkeye/demeet/internal/core"
	"github.com/dkeye/demeet/internal/domain"
)

type EventType string

const (
	EventJoinRoom      EventType = "join-room"
	EventUserConnected EventType = "user-connected"
	EventToggleAudio   EventType = "user-toggle-audio"
	EventToggleVideo   EventType = "user-toggle-video"
	EventUserLeave     EventType = "user-leave"
	EventPing          EventType = "ping"
	EventPong          EventType = "pong"
)

// Event is the relay envelope shared by inbound and outbound frames.
type Event struct {
	Type          EventType            `json:"type"`
	RoomID        domain.RoomID        `json:"roomId,omitempty"`
	ParticipantID domain.ParticipantID `json:"participantId,omitempty"`
}

func IsToggle(t EventType) bool {
	return t == EventToggleAudio || t == EventToggleVideo
}

// encodePeerEvent builds the frame delivered to the other members of a room.
// Only the participant id leaves the server.
func encodePeerEvent(t EventType, participant domain.ParticipantID) core.Frame {
	b, _ := json.Marshal(Event{Type: t, ParticipantID: participant})
	return b
}
