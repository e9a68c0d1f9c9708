package signal

import (
	"context"

	"github.com/dkeye/demeet/internal/app"
	"github.com/dkeye/demeet/internal/core"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(ctx context.Context, sid core.SessionID, ev app.Event) error {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(ev.RoomID)).Str("participant", string(ev.ParticipantID)).Msg("join")
	return ctl.Orch.JoinRoom(ctx, sid, ev.RoomID, ev.ParticipantID)
}

// handleLeave leaves the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(sid core.SessionID, ev app.Event) error {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	return ctl.Orch.LeaveRoom(sid, ev.RoomID)
}
