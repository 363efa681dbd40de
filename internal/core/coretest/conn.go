// Package coretest provides an in-memory core.SignalConnection for tests
// that exercise routing and fan-out without a live transport.
package coretest

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/callrelay/internal/core"
)

// Conn records every frame enqueued on it. Setting Full makes TrySend
// report backpressure.
type Conn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed int
	Full   bool
}

func NewConn() *Conn { return &Conn{} }

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed > 0 {
		return core.ErrConnClosed
	}
	if c.Full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
}

func (c *Conn) SetFull(full bool) {
	c.mu.Lock()
	c.Full = full
	c.mu.Unlock()
}

// Closed reports how many times Close was called.
func (c *Conn) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) Frames() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

// Envelopes decodes every recorded frame, failing t on malformed output.
func (c *Conn) Envelopes(t testing.TB) []core.Envelope {
	t.Helper()
	frames := c.Frames()
	out := make([]core.Envelope, 0, len(frames))
	for _, f := range frames {
		var env core.Envelope
		if err := json.Unmarshal(f, &env); err != nil {
			t.Fatalf("decode frame %s: %v", f, err)
		}
		out = append(out, env)
	}
	return out
}

// Session builds a session on a fresh Conn.
func Session(id string) (*core.Session, *Conn) {
	c := NewConn()
	return core.NewSession(core.SessionID(id), c), c
}
