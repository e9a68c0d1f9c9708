package permission

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/demeet/internal/core"
	"github.com/dkeye/demeet/internal/domain"
	"github.com/rs/zerolog/log"
)

// MeetingAdmission admits a relay join only for subjects that may join the
// meeting whose id equals the room id.
type MeetingAdmission struct {
	Meetings core.MeetingStore
}

func (a MeetingAdmission) Admit(ctx context.Context, subject domain.IdentityID, room domain.RoomID) error {
	if subject == "" {
		return domain.ErrUnauthorized
	}
	id, err := domain.ParseMeetingID(string(room))
	if err != nil {
		return err
	}
	m, err := a.Meetings.Meeting(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return errors.Join(domain.ErrInternal, err)
	}
	if m.Ended(time.Now()) {
		return domain.ErrForbidden
	}
	if err := Require(m, subject, domain.ActionJoinMeetings); err != nil {
		log.Info().Str("module", "permission").Str("sub", string(subject)).Str("room", string(room)).Msg("join denied")
		return err
	}
	return nil
}
