package permission

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/demeet/internal/adapters/store/memory"
	"github.com/dkeye/demeet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meeting() *domain.Meeting {
	return &domain.Meeting{
		ID:          "m1",
		Host:        []domain.IdentityID{"h1"},
		Members:     []domain.IdentityID{"u1", "h1"},
		Permissions: map[domain.Action][]domain.Role{domain.ActionEndMeetings: {domain.RoleHost}},
	}
}

func TestRoleOfPrefersHost(t *testing.T) {
	m := meeting()

	role, ok := RoleOf(m, "h1")
	assert.True(t, ok)
	assert.Equal(t, domain.RoleHost, role)

	role, ok = RoleOf(m, "u1")
	assert.True(t, ok)
	assert.Equal(t, domain.RoleMember, role)

	_, ok = RoleOf(m, "stranger")
	assert.False(t, ok)
	_, ok = RoleOf(nil, "h1")
	assert.False(t, ok)
}

func TestCanPerformIsFailClosed(t *testing.T) {
	m := meeting()

	assert.True(t, CanPerform(m, "h1", domain.ActionEndMeetings))
	assert.False(t, CanPerform(m, "u1", domain.ActionEndMeetings))
	assert.False(t, CanPerform(m, "stranger", domain.ActionEndMeetings))
	assert.False(t, CanPerform(m, "h1", domain.ActionRecordMeetings))
	assert.False(t, CanPerform(m, "", domain.ActionEndMeetings))
}

func TestCanPerformSeesListChanges(t *testing.T) {
	m := meeting()
	m.Permissions[domain.ActionJoinMeetings] = []domain.Role{domain.RoleHost, domain.RoleMember}
	assert.False(t, CanPerform(m, "late", domain.ActionJoinMeetings))

	m.Members = append(m.Members, "late")
	assert.True(t, CanPerform(m, "late", domain.ActionJoinMeetings))

	m.Host = append(m.Host, "late")
	assert.True(t, CanPerform(m, "late", domain.ActionEndMeetings))
}

func TestRequire(t *testing.T) {
	m := meeting()
	assert.NoError(t, Require(m, "h1", domain.ActionEndMeetings))
	assert.ErrorIs(t, Require(m, "u1", domain.ActionEndMeetings), domain.ErrForbidden)
}

func TestMeetingAdmission(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMeetingStore()
	m, err := domain.NewMeeting("sync", "h1", nil, time.Time{})
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, m))
	require.NoError(t, store.AddMember(ctx, m.ID, "u1"))
	adm := MeetingAdmission{Meetings: store}
	room := domain.RoomID(m.ID)

	assert.NoError(t, adm.Admit(ctx, "h1", room))
	assert.NoError(t, adm.Admit(ctx, "u1", room))
	assert.ErrorIs(t, adm.Admit(ctx, "stranger", room), domain.ErrForbidden)
	assert.ErrorIs(t, adm.Admit(ctx, "", room), domain.ErrUnauthorized)
	assert.ErrorIs(t, adm.Admit(ctx, "h1", "nope"), domain.ErrNotFound)

	require.NoError(t, store.End(ctx, m.ID, time.Now().Add(-time.Minute)))
	assert.ErrorIs(t, adm.Admit(ctx, "h1", room), domain.ErrForbidden)
}
