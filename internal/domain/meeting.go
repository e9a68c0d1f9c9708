package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type (
	MeetingID string
	Role      string
	Action    string
)

const (
	RoleHost   Role = "host"
	RoleMember Role = "member"
)

// Meeting-level actions.
const (
	ActionMuteSomeone  Action = "canMuteSomeone"
	ActionAdmitPeople  Action = "canAdmitPeople"
	ActionEndMeeting   Action = "canEndMeeting"
	ActionEditSettings Action = "canEditSettings"
	ActionJoinMeetings Action = "canJoinMeetings"
)

// Organisation-level action names, shared with meeting permission maps.
const (
	ActionRevokeAccess     Action = "canRevokeAccess"
	ActionManageRoles      Action = "canManageRoles"
	ActionAccessLogs       Action = "canAccessLogs"
	ActionViewReports      Action = "canViewReports"
	ActionCreateMeetings   Action = "canCreateMeetings"
	ActionEditMeetings     Action = "canEditMeetings"
	ActionDeleteMeetings   Action = "canDeleteMeetings"
	ActionEndMeetings      Action = "canEndMeetings"
	ActionRecordMeetings   Action = "canRecordMeetings"
	ActionAccessRecordings Action = "canAccessRecordings"
	ActionDeleteRecordings Action = "canDeleteRecordings"
	ActionShareRecordings  Action = "canShareRecordings"
)

type MeetingSettings struct {
	WaitingRoomEnabled bool `json:"waitingRoomEnabled"`
}

type Meeting struct {
	ID             MeetingID         `json:"id"`
	Name           string            `json:"name"`
	OrganisationID string            `json:"organisation,omitempty"`
	Host           []IdentityID      `json:"host"`
	Members        []IdentityID      `json:"members"`
	CreatedBy      IdentityID        `json:"createdBy"`
	Permissions    map[Action][]Role `json:"permissions"`
	Settings       MeetingSettings   `json:"settings"`
	StartDateTime  time.Time         `json:"startDateTime"`
	EndDateTime    *time.Time        `json:"endDateTime,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// ParseMeetingID accepts only canonical uuid strings.
func ParseMeetingID(raw string) (MeetingID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrNotFound
	}
	return MeetingID(id.String()), nil
}

// DefaultPermissions mirrors the stock meeting policy: everything privileged
// is host-only, joining is open to hosts and members.
func DefaultPermissions() map[Action][]Role {
	return map[Action][]Role{
		ActionMuteSomeone:  {RoleHost},
		ActionAdmitPeople:  {RoleHost},
		ActionEndMeeting:   {RoleHost},
		ActionEditSettings: {RoleHost},
		ActionJoinMeetings: {RoleHost, RoleMember},
	}
}

// NewMeeting builds a meeting whose creator is always the first host.
func NewMeeting(name string, createdBy IdentityID, hosts []IdentityID, start time.Time) (*Meeting, error) {
	name = strings.TrimSpace(name)
	if name == "" || createdBy == "" {
		return nil, ErrInvalidInput
	}
	if start.IsZero() {
		start = time.Now().UTC()
	}
	h := make([]IdentityID, 0, len(hosts)+1)
	h = append(h, createdBy)
	for _, id := range hosts {
		if id != "" && !slices.Contains(h, id) {
			h = append(h, id)
		}
	}
	return &Meeting{
		ID:            MeetingID(uuid.NewString()),
		Name:          name,
		Host:          h,
		Members:       []IdentityID{},
		CreatedBy:     createdBy,
		Permissions:   DefaultPermissions(),
		Settings:      MeetingSettings{WaitingRoomEnabled: true},
		StartDateTime: start.UTC(),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Ended reports whether the meeting has an end time in the past.
func (m *Meeting) Ended(now time.Time) bool {
	return m.EndDateTime != nil && !m.EndDateTime.After(now)
}
