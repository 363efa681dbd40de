package signal

import (
	"encoding/json"

	"github.com/dkeye/callrelay/internal/core"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(sess *core.Session, data json.RawMessage) {
	room, err := stringOrField(data, "room")
	if err == nil {
		err = ctl.Orch.Join(sess, room)
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("join failed")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Str("room", room).Msg("join")
}

// handleLeave drops one room membership; the connection stays up.
func (ctl *SignalWSController) handleLeave(sess *core.Session, data json.RawMessage) {
	room, err := stringOrField(data, "room")
	if err == nil {
		err = ctl.Orch.Leave(sess, room)
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("leave failed")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Str("room", room).Msg("leave")
}

// handleSendMessage fans the payload out verbatim, conversationId included.
func (ctl *SignalWSController) handleSendMessage(sess *core.Session, data json.RawMessage) {
	var p messagePayload
	if err := decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("bad send_message payload")
		return
	}
	if _, err := ctl.Orch.Broadcast(p.ConversationID, data); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("send_message failed")
	}
}
