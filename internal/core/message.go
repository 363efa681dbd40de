package core

import (
	"encoding/json"

	"github.com/dkeye/callrelay/internal/domain"
)

// Event names on the wire.
const (
	EventRegister          = "register"
	EventOffer             = "offer"
	EventAnswer            = "answer"
	EventICECandidate      = "ice-candidate"
	EventEndCall           = "end-call"
	EventCallRejected      = "call-rejected"
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventReceiveMessage    = "receive_message"
	EventAck               = "ack"
	EventPing              = "ping"
	EventPong              = "pong"
)

// Envelope frames every event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	ID    uint64          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeEvent marshals data and wraps it in an Envelope.
func EncodeEvent(event string, id uint64, data any) (Frame, error) {
	env := Envelope{Event: event, ID: id}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}

// SignalMessage is the closed set of call-control messages. Each one
// addresses exactly one target identity.
type SignalMessage interface {
	Event() string
	TargetID() domain.UserID
	signal()
}

type Offer struct {
	Target     domain.UserID
	Payload    json.RawMessage
	CallKind   string
	FromUserID domain.UserID
}

type Answer struct {
	Target  domain.UserID
	Payload json.RawMessage
}

type ICECandidate struct {
	Target  domain.UserID
	Source  domain.UserID
	Payload json.RawMessage
}

type EndCall struct {
	Target domain.UserID
}

type CallRejected struct {
	Target domain.UserID
}

func (Offer) Event() string        { return EventOffer }
func (Answer) Event() string       { return EventAnswer }
func (ICECandidate) Event() string { return EventICECandidate }
func (EndCall) Event() string      { return EventEndCall }
func (CallRejected) Event() string { return EventCallRejected }

func (m Offer) TargetID() domain.UserID        { return m.Target }
func (m Answer) TargetID() domain.UserID       { return m.Target }
func (m ICECandidate) TargetID() domain.UserID { return m.Target }
func (m EndCall) TargetID() domain.UserID      { return m.Target }
func (m CallRejected) TargetID() domain.UserID { return m.Target }

func (Offer) signal()        {}
func (Answer) signal()       {}
func (ICECandidate) signal() {}
func (EndCall) signal()      {}
func (CallRejected) signal() {}

// Outbound payloads.

type OfferOut struct {
	FromUserID domain.UserID   `json:"fromUserId"`
	Offer      json.RawMessage `json:"offer"`
	Type       string          `json:"type"`
}

type AnswerOut struct {
	Answer json.RawMessage `json:"answer"`
}

type ICECandidateOut struct {
	From      domain.UserID   `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

// Empty encodes as {} for events that carry no fields.
type Empty struct{}
