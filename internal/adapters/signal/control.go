package signal

import (
	"encoding/json"

	"github.com/dkeye/callrelay/internal/core"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleRegister(sess *core.Session, data json.RawMessage) {
	raw, err := stringOrField(data, "userId")
	if err == nil {
		err = ctl.Orch.Register(sess, raw)
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("register failed")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Str("user", raw).Msg("registered")
}

func (ctl *SignalWSController) handlePing(conn *WsSignalConn, id uint64) {
	ctl.sendEvent(conn, core.EventPong, id, nil)
}
