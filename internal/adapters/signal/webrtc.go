package signal

import (
	"encoding/json"

	"github.com/dkeye/callrelay/internal/adapters/rtc"
	"github.com/dkeye/callrelay/internal/core"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleOffer(sess *core.Session, data json.RawMessage) {
	msg, err := decodeOffer(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("bad offer payload")
		return
	}
	logSDP(sess, "offer", msg.Payload)
	_ = ctl.Orch.Route(sess, msg)
}

// handleAnswer always acks, echoing the envelope id.
func (ctl *SignalWSController) handleAnswer(sess *core.Session, conn *WsSignalConn, id uint64, data json.RawMessage) {
	msg, err := decodeAnswer(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("bad answer payload")
		ctl.sendEvent(conn, core.EventAck, id, core.AckFor(err))
		return
	}
	logSDP(sess, "answer", msg.Payload)
	ctl.sendEvent(conn, core.EventAck, id, ctl.Orch.Answer(sess, msg))
}

func (ctl *SignalWSController) handleCandidate(sess *core.Session, data json.RawMessage) {
	msg, err := decodeCandidate(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("bad candidate payload")
		return
	}
	if sum, ok := rtc.DescribeCandidate(msg.Payload); ok {
		log.Debug().Str("module", "signal").Str("sid", string(sess.ID())).Str("to", string(msg.Target)).
			Str("kind", sum.Kind).Str("sdp_mid", sum.SDPMid).Msg("candidate")
	}
	_ = ctl.Orch.Route(sess, msg)
}

func (ctl *SignalWSController) handleHangup(sess *core.Session, event string, data json.RawMessage) {
	msg, err := decodeHangup(event, data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Str("event", event).Msg("bad payload")
		return
	}
	_ = ctl.Orch.Route(sess, msg)
}

func logSDP(sess *core.Session, kind string, payload json.RawMessage) {
	sum, ok := rtc.DescribeSDP(payload)
	if !ok {
		return
	}
	log.Debug().Str("module", "signal").Str("sid", string(sess.ID())).Str("kind", kind).
		Str("sdp_type", sum.Type).Strs("media", sum.Media).Strs("mids", sum.MIDs).Msg("session description")
}
