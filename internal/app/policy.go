package app

import (
	"fmt"

	"github.com/dkeye/callrelay/internal/core"
)

type BackpressureAction int

const (
	DropFrame BackpressureAction = iota
	KickMember
)

func (a BackpressureAction) String() string {
	switch a {
	case DropFrame:
		return "drop"
	case KickMember:
		return "disconnect"
	}
	return "unknown"
}

// Policy decides what happens to a receiver whose outbound queue is full.
type Policy interface {
	OnBackPressure(sess *core.Session) BackpressureAction
}

type SimplePolicy struct {
	Action BackpressureAction
}

func (p SimplePolicy) OnBackPressure(*core.Session) BackpressureAction {
	return p.Action
}

// ParsePolicy maps the configured policy name to a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return SimplePolicy{Action: DropFrame}, nil
	case "disconnect":
		return SimplePolicy{Action: KickMember}, nil
	}
	return nil, fmt.Errorf("unknown backpressure policy %q", name)
}
