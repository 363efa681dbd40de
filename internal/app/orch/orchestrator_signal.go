package orch

import (
	"errors"
	"fmt"

	"github.com/dkeye/callrelay/internal/app"
	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Route forwards a call-control message to its single target. The error is
// for logging; only Answer reports it back to the sender.
func (o *Orchestrator) Route(from *core.Session, msg core.SignalMessage) error {
	err := o.route(from, msg)
	switch {
	case err == nil:
		o.Metrics.Signal(msg.Event(), "delivered")
	case errors.Is(err, core.ErrInvalidMessage):
		o.Metrics.Signal(msg.Event(), "invalid")
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(from.ID())).Str("event", msg.Event()).Msg("signal dropped")
	default:
		o.Metrics.Signal(msg.Event(), "unreachable")
		log.Info().Err(err).Str("module", "orch").Str("sid", string(from.ID())).Str("event", msg.Event()).
			Str("to", string(msg.TargetID())).Msg("signal target unreachable")
	}
	return err
}

// Answer routes an answer and reports the outcome to the caller.
func (o *Orchestrator) Answer(from *core.Session, msg core.Answer) core.AckResult {
	return core.AckFor(o.Route(from, msg))
}

func (o *Orchestrator) route(from *core.Session, msg core.SignalMessage) error {
	if msg.TargetID() == "" {
		return fmt.Errorf("%w: %s without target", core.ErrInvalidMessage, msg.Event())
	}

	var data any
	switch m := msg.(type) {
	case core.Offer:
		sender, err := o.senderID(from, m.FromUserID)
		if err != nil {
			return err
		}
		data = core.OfferOut{FromUserID: sender, Offer: m.Payload, Type: m.CallKind}
	case core.Answer:
		data = core.AnswerOut{Answer: m.Payload}
	case core.ICECandidate:
		source, err := o.senderID(from, m.Source)
		if err != nil {
			return err
		}
		if o.Options.StrictICESource {
			if cur, ok := o.Registry.Lookup(source); !ok || cur != from {
				return fmt.Errorf("%w: candidate source %s is not the sender", core.ErrInvalidMessage, source)
			}
		}
		data = core.ICECandidateOut{From: source, Candidate: m.Payload}
	case core.EndCall, core.CallRejected:
		data = core.Empty{}
	default:
		return fmt.Errorf("%w: unsupported %T", core.ErrInvalidMessage, msg)
	}

	target, ok := o.Registry.Lookup(msg.TargetID())
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrTargetNotConnected, msg.TargetID())
	}
	f, err := core.EncodeEvent(msg.Event(), 0, data)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidMessage, err)
	}
	return o.deliver(target, f)
}

// senderID prefers the identity registered on the connection over the one
// the client claims.
func (o *Orchestrator) senderID(from *core.Session, claimed domain.UserID) (domain.UserID, error) {
	if id, ok := from.Identity(); ok {
		if claimed != "" && claimed != id {
			log.Debug().Str("module", "orch").Str("sid", string(from.ID())).
				Str("user", string(id)).Str("claimed", string(claimed)).Msg("ignoring claimed sender")
		}
		return id, nil
	}
	if claimed == "" {
		return "", fmt.Errorf("%w: unregistered sender", core.ErrInvalidMessage)
	}
	return claimed, nil
}

// deliver enqueues f for target and applies the backpressure policy when
// its queue is full.
func (o *Orchestrator) deliver(target *core.Session, f core.Frame) error {
	err := target.Send(f)
	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrBackpressure) {
		o.Metrics.Drop("closed")
		return err
	}

	o.Metrics.Drop("backpressure")
	action := app.DropFrame
	if o.Policy != nil {
		action = o.Policy.OnBackPressure(target)
	}
	log.Warn().Str("module", "orch").Str("sid", string(target.ID())).Str("action", action.String()).Msg("backpressure")
	if action == app.KickMember {
		o.Disconnect(target)
	}
	return err
}
