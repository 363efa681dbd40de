package signal

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
)

type offerPayload struct {
	To         domain.UserID   `json:"to"`
	Offer      json.RawMessage `json:"offer"`
	Type       string          `json:"type"`
	FromUserID domain.UserID   `json:"fromUserId"`
}

type answerPayload struct {
	To     domain.UserID   `json:"to"`
	Answer json.RawMessage `json:"answer"`
}

type candidatePayload struct {
	To        domain.UserID   `json:"to"`
	From      domain.UserID   `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

type targetPayload struct {
	To domain.UserID `json:"to"`
}

type messagePayload struct {
	ConversationID string `json:"conversationId"`
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", core.ErrInvalidMessage)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidMessage, err)
	}
	return nil
}

// stringOrField accepts either a bare JSON string or an object holding the
// string under key.
func stringOrField(data json.RawMessage, key string) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s, nil
	}
	var obj map[string]json.RawMessage
	if err := decode(data, &obj); err != nil {
		return "", err
	}
	raw, ok := obj[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %s", core.ErrInvalidMessage, key)
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s is not a string", core.ErrInvalidMessage, key)
	}
	return s, nil
}

func decodeOffer(data json.RawMessage) (core.Offer, error) {
	var p offerPayload
	if err := decode(data, &p); err != nil {
		return core.Offer{}, err
	}
	return core.Offer{Target: p.To, Payload: p.Offer, CallKind: p.Type, FromUserID: p.FromUserID}, nil
}

func decodeAnswer(data json.RawMessage) (core.Answer, error) {
	var p answerPayload
	if err := decode(data, &p); err != nil {
		return core.Answer{}, err
	}
	return core.Answer{Target: p.To, Payload: p.Answer}, nil
}

func decodeCandidate(data json.RawMessage) (core.ICECandidate, error) {
	var p candidatePayload
	if err := decode(data, &p); err != nil {
		return core.ICECandidate{}, err
	}
	return core.ICECandidate{Target: p.To, Source: p.From, Payload: p.Candidate}, nil
}

func decodeHangup(event string, data json.RawMessage) (core.SignalMessage, error) {
	var p targetPayload
	if err := decode(data, &p); err != nil {
		return nil, err
	}
	if event == core.EventCallRejected {
		return core.CallRejected{Target: p.To}, nil
	}
	return core.EndCall{Target: p.To}, nil
}
