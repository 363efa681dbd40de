package orch

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) Join(sess *core.Session, rawRoom string) error {
	room, err := domain.ParseRoomID(rawRoom)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidMessage, err)
	}
	if sess.Closed() {
		return core.ErrConnClosed
	}
	o.Rooms.Join(room, sess)
	if sess.Closed() {
		o.Rooms.Leave(room, sess)
		return core.ErrConnClosed
	}
	return nil
}

func (o *Orchestrator) Leave(sess *core.Session, rawRoom string) error {
	room, err := domain.ParseRoomID(rawRoom)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidMessage, err)
	}
	o.Rooms.Leave(room, sess)
	return nil
}

// Broadcast delivers payload as receive_message to every member of room,
// the sender included when it is a member. An empty room is a no-op.
func (o *Orchestrator) Broadcast(rawRoom string, payload json.RawMessage) (core.PublishResult, error) {
	room, err := domain.ParseRoomID(rawRoom)
	if err != nil {
		return core.PublishResult{}, fmt.Errorf("%w: %v", core.ErrInvalidMessage, err)
	}
	f, err := core.EncodeEvent(core.EventReceiveMessage, 0, payload)
	if err != nil {
		return core.PublishResult{}, fmt.Errorf("%w: %v", core.ErrInvalidMessage, err)
	}

	o.fanout.Lock()
	defer o.fanout.Unlock()

	res := core.PublishResult{}
	for _, m := range o.Rooms.MembersOf(room) {
		if err := o.deliver(m, f); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SentTo++
	}
	o.Metrics.Broadcast()
	log.Debug().Str("module", "orch").Str("room", string(room)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res, nil
}
