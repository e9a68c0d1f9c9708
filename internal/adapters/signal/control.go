package signal

import (
	"github.com/dkeye/demeet/internal/app"
	"github.com/dkeye/demeet/internal/core"
)

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, app.Event{Type: app.EventPong})
}

func (ctl *SignalWSController) handleToggle(sid core.SessionID, ev app.Event) error {
	return ctl.Orch.Toggle(sid, ev.Type, ev.RoomID, ev.ParticipantID)
}
