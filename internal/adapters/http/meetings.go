package http

import (
	"net/http"
	"time"

	"github.com/dkeye/demeet/internal/app"
	"github.com/dkeye/demeet/internal/app/permission"
	"github.com/dkeye/demeet/internal/core"
	"github.com/dkeye/demeet/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type meetingHandler struct {
	meetings core.MeetingStore
	orch     *app.Orchestrator
}

type createMeetingRequest struct {
	Name          string    `json:"name" binding:"required"`
	Hosts         []string  `json:"host"`
	StartDateTime time.Time `json:"startDateTime"`
}

type addMemberRequest struct {
	MemberID string `json:"memberId" binding:"required"`
}

type settingsRequest struct {
	WaitingRoomEnabled *bool `json:"waitingRoomEnabled" binding:"required"`
}

func (h *meetingHandler) create(c *gin.Context) {
	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, domain.ErrInvalidInput)
		return
	}
	hosts := make([]domain.IdentityID, 0, len(req.Hosts))
	for _, raw := range req.Hosts {
		id, err := domain.ParseIdentityID(raw)
		if err != nil {
			fail(c, err)
			return
		}
		hosts = append(hosts, id)
	}
	m, err := domain.NewMeeting(req.Name, subjectOf(c), hosts, req.StartDateTime)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.meetings.Create(c.Request.Context(), m); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "meeting created", m)
}

// get is open to anyone holding a role in the meeting.
func (h *meetingHandler) get(c *gin.Context) {
	m, ok := h.load(c)
	if !ok {
		return
	}
	if _, ok := permission.RoleOf(m, subjectOf(c)); !ok {
		fail(c, domain.ErrForbidden)
		return
	}
	respond(c, http.StatusOK, "meeting", m)
}

func (h *meetingHandler) addMember(c *gin.Context) {
	m, ok := h.authorize(c, domain.ActionAdmitPeople)
	if !ok {
		return
	}
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, domain.ErrInvalidInput)
		return
	}
	member, err := domain.ParseIdentityID(req.MemberID)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.meetings.AddMember(c.Request.Context(), m.ID, member); err != nil {
		fail(c, err)
		return
	}
	h.respondFresh(c, m.ID, "member added")
}

func (h *meetingHandler) updateSettings(c *gin.Context) {
	m, ok := h.authorize(c, domain.ActionEditSettings)
	if !ok {
		return
	}
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, domain.ErrInvalidInput)
		return
	}
	if err := h.meetings.UpdateSettings(c.Request.Context(), m.ID, domain.MeetingSettings{WaitingRoomEnabled: *req.WaitingRoomEnabled}); err != nil {
		fail(c, err)
		return
	}
	h.respondFresh(c, m.ID, "settings updated")
}

// end stamps the end time and disconnects everyone still in the live room.
func (h *meetingHandler) end(c *gin.Context) {
	m, ok := h.authorize(c, domain.ActionEndMeeting)
	if !ok {
		return
	}
	if err := h.meetings.End(c.Request.Context(), m.ID, time.Now()); err != nil {
		fail(c, err)
		return
	}
	kicked := h.orch.EvictRoom(domain.RoomID(m.ID))
	log.Info().Str("module", "adapters.http").Str("meeting", string(m.ID)).Int("kicked", kicked).Msg("meeting ended")
	respond(c, http.StatusOK, "meeting ended", gin.H{"kicked": kicked})
}

func (h *meetingHandler) load(c *gin.Context) (*domain.Meeting, bool) {
	id, err := domain.ParseMeetingID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	m, err := h.meetings.Meeting(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return m, true
}

func (h *meetingHandler) authorize(c *gin.Context, action domain.Action) (*domain.Meeting, bool) {
	m, ok := h.load(c)
	if !ok {
		return nil, false
	}
	if err := permission.Require(m, subjectOf(c), action); err != nil {
		fail(c, err)
		return nil, false
	}
	return m, true
}

func (h *meetingHandler) respondFresh(c *gin.Context, id domain.MeetingID, message string) {
	m, err := h.meetings.Meeting(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, message, m)
}
