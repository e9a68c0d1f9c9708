package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/demeet/internal/app"
	"github.com/dkeye/demeet/internal/core"
	"github.com/dkeye/demeet/internal/obs"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const writeWait = 5 * time.Second

// writePump owns all writes. Cancelling ctx closes the connection, which
// unblocks the read pump and triggers leave-on-close.
func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn, limiter *rate.Limiter) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.Disconnect(sid)
		c.Close()
	}()

	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait)) }
	_ = extend()
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		_ = extend()
		if !limiter.Allow() {
			log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("rate limited")
			obs.RelayEvents.WithLabelValues("any", "limited").Inc()
			continue
		}
		ctl.handleSignal(ctx, sid, c, data)
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, sid core.SessionID, c *WsSignalConn, data []byte) {
	var ev app.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		obs.RelayEvents.WithLabelValues("malformed", "dropped").Inc()
		return
	}

	var err error
	switch ev.Type {
	case app.EventJoinRoom:
		err = ctl.handleJoin(ctx, sid, ev)
	case app.EventUserLeave:
		err = ctl.handleLeave(sid, ev)
	case app.EventToggleAudio, app.EventToggleVideo:
		err = ctl.handleToggle(sid, ev)
	case app.EventPing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", string(ev.Type)).Msg("unknown signal")
		obs.RelayEvents.WithLabelValues("unknown", "dropped").Inc()
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("type", string(ev.Type)).Msg("event dropped")
		obs.RelayEvents.WithLabelValues(string(ev.Type), "dropped").Inc()
		return
	}
	obs.RelayEvents.WithLabelValues(string(ev.Type), "ok").Inc()
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
