package core

import "errors"

var (
	ErrTargetNotConnected = errors.New("target not connected")
	ErrInvalidMessage     = errors.New("invalid message")
	// ErrStaleRegistration marks an unregister that lost to a newer
	// registration. It never reaches clients.
	ErrStaleRegistration = errors.New("stale registration")
)

const (
	CodeTargetNotConnected = "TargetNotConnected"
	CodeInvalidMessage     = "InvalidMessage"
	CodeInternal           = "Internal"
)

// ErrorCode maps err to the code sent to clients.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTargetNotConnected),
		errors.Is(err, ErrConnClosed),
		errors.Is(err, ErrBackpressure):
		return CodeTargetNotConnected
	case errors.Is(err, ErrInvalidMessage):
		return CodeInvalidMessage
	default:
		return CodeInternal
	}
}

// AckResult is the outcome returned to the sender of a request/response
// event.
type AckResult struct {
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

func AckFor(err error) AckResult {
	if err == nil {
		return AckResult{Success: true}
	}
	return AckResult{Error: ErrorCode(err)}
}
