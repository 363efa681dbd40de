package orch

import (
	"fmt"
	"sync"

	"github.com/dkeye/callrelay/internal/app"
	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/dkeye/callrelay/internal/metrics"
	"github.com/rs/zerolog/log"
)

type Options struct {
	// CloseSuperseded closes a connection whose identity was taken over by
	// a newer registration. Otherwise it stays open but unreachable.
	CloseSuperseded bool
	// StrictICESource drops candidates whose source identity does not
	// resolve to the sending connection.
	StrictICESource bool
}

// Orchestrator owns session lifecycles and drives the registry and room
// tracker. It is the only component that ends a session.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.RoomTracker
	Policy   app.Policy
	Metrics  *metrics.Metrics
	Options  Options

	// fanout serializes broadcasts so every member of a room sees the
	// room's messages in the same order.
	fanout sync.Mutex
}

func New(opts Options, policy app.Policy, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomTracker(),
		Policy:   policy,
		Metrics:  m,
		Options:  opts,
	}
}

// Connect creates the session for a freshly accepted transport.
func (o *Orchestrator) Connect(conn core.SignalConnection) *core.Session {
	sess := core.NewSession(core.NewSessionID(), conn)
	o.Metrics.ConnOpened()
	log.Info().Str("module", "orch").Str("sid", string(sess.ID())).Msg("connected")
	return sess
}

// Register binds an identity to sess. Any older session holding the same
// identity stops being reachable by it.
func (o *Orchestrator) Register(sess *core.Session, rawID string) error {
	id, err := domain.ParseUserID(rawID)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidMessage, err)
	}
	if cur, ok := sess.Identity(); ok && cur != id {
		o.Registry.Unregister(sess)
		log.Info().Str("module", "orch").Str("sid", string(sess.ID())).
			Str("from_user", string(cur)).Str("user", string(id)).Msg("identity changed")
	}
	if err := sess.Bind(id); err != nil {
		return err
	}
	prev := o.Registry.Register(id, sess)
	if sess.Closed() {
		// Lost a race with Disconnect. The session it replaced may still be
		// open and is the rightful holder again.
		o.Registry.Restore(id, sess, prev)
		o.Metrics.SetRegistered(o.Registry.Count())
		return core.ErrConnClosed
	}
	o.Metrics.SetRegistered(o.Registry.Count())

	if prev != nil && o.Options.CloseSuperseded {
		log.Info().Str("module", "orch").Str("sid", string(prev.ID())).Str("user", string(id)).Msg("closing superseded connection")
		prev.CloseTransport()
	}
	return nil
}

// Disconnect moves sess to Closed: unregister, then leave every room, then
// close the transport. Repeated calls do nothing.
func (o *Orchestrator) Disconnect(sess *core.Session) {
	last := o.StateOf(sess)
	if !sess.MarkClosed() {
		return
	}
	o.Registry.Unregister(sess)
	left := o.Rooms.LeaveAll(sess)
	sess.CloseTransport()

	o.Metrics.ConnClosed()
	o.Metrics.SetRegistered(o.Registry.Count())

	ev := log.Info().Str("module", "orch").Str("sid", string(sess.ID())).
		Str("state", last.String()).Int("rooms_left", len(left))
	if id, ok := sess.Identity(); ok {
		ev = ev.Str("user", string(id))
	}
	ev.Msg("disconnected")
}

// StateOf derives the lifecycle state from the session's bind and its room
// memberships. A superseded session keeps StateRegistered: it is still
// bound to its identity even though the registry no longer routes to it.
func (o *Orchestrator) StateOf(sess *core.Session) core.State {
	return sess.State(len(o.Rooms.RoomsOf(sess)) > 0)
}
