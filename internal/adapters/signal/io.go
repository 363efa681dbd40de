package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkeye/callrelay/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func (ctl *SignalWSController) writePump(ctx context.Context, sess *core.Session, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		// Unblocks readPump, which then runs the disconnect.
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("sid", string(sess.ID())).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("writePump ping error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sess *core.Session, c *WsSignalConn) {
	defer func() {
		cancel()
		ctl.Orch.Disconnect(sess)
		log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Msg("readPump closing")
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait)) }
	_ = extend()
	c.conn.SetPongHandler(func(string) error { return extend() })

	limiter := newLimiter(ctl.opts)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("readPump read error")
			}
			return
		}
		_ = extend()
		if !limiter.Allow() {
			ctl.Orch.Metrics.Drop("rate_limited")
			log.Warn().Str("module", "signal").Str("sid", string(sess.ID())).Msg("rate limited")
			continue
		}
		ctl.handleSignal(sess, c, data)
	}
}

func newLimiter(opts Options) *rate.Limiter {
	if opts.RateLimit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := opts.RateBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
}

func (ctl *SignalWSController) handleSignal(sess *core.Session, c *WsSignalConn, data []byte) {
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("bad json")
		// An answer still gets its ack even when the envelope around it is
		// broken; the id is unusable so the ack carries none.
		var head struct {
			Event string `json:"event"`
		}
		if json.Unmarshal(data, &head) == nil && head.Event == core.EventAnswer {
			ctl.sendEvent(c, core.EventAck, 0, core.AckFor(fmt.Errorf("%w: %v", core.ErrInvalidMessage, err)))
		}
		return
	}

	switch env.Event {
	case core.EventRegister:
		ctl.handleRegister(sess, env.Data)
	case core.EventOffer:
		ctl.handleOffer(sess, env.Data)
	case core.EventAnswer:
		ctl.handleAnswer(sess, c, env.ID, env.Data)
	case core.EventICECandidate:
		ctl.handleCandidate(sess, env.Data)
	case core.EventEndCall, core.EventCallRejected:
		ctl.handleHangup(sess, env.Event, env.Data)
	case core.EventJoinConversation:
		ctl.handleJoin(sess, env.Data)
	case core.EventLeaveConversation:
		ctl.handleLeave(sess, env.Data)
	case core.EventSendMessage:
		ctl.handleSendMessage(sess, env.Data)
	case core.EventPing:
		ctl.handlePing(c, env.ID)
	default:
		log.Warn().Str("module", "signal").Str("sid", string(sess.ID())).Str("event", env.Event).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) sendEvent(c *WsSignalConn, event string, id uint64, data any) {
	f, err := core.EncodeEvent(event, id, data)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("event", event).Msg("sendEvent marshal")
		return
	}
	if err := c.TrySend(f); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("event", event).Msg("sendEvent dropped")
	}
}
