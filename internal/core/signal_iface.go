package core

import "errors"

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Frame is one encoded outbound event.
type Frame []byte

// SignalConnection is the outbound half of one client transport. The
// transport adapter creates it and closes it.
type SignalConnection interface {
	// TrySend enqueues f without blocking. It returns ErrBackpressure when
	// the outbound queue is full and ErrConnClosed after Close.
	TrySend(f Frame) error
	Close()
}

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SentTo  int
	Dropped []*Session
}
