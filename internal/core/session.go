package core

import (
	"sync"

	"github.com/dkeye/callrelay/internal/domain"
	"github.com/google/uuid"
)

type SessionID string

func NewSessionID() SessionID { return SessionID(uuid.NewString()) }

type State int

const (
	StateConnected State = iota
	StateRegistered
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateRegistered:
		return "registered"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session is the handle of one live transport session.
// The registry and room tracker keep pointers to it for lookup only;
// the lifecycle controller alone decides when it ends.
type Session struct {
	id   SessionID
	conn SignalConnection

	mu       sync.RWMutex
	identity domain.UserID
	closed   bool
}

func NewSession(id SessionID, conn SignalConnection) *Session {
	return &Session{id: id, conn: conn}
}

func (s *Session) ID() SessionID { return s.id }

// Identity returns the identity bound by registration, if any.
func (s *Session) Identity() (domain.UserID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.identity != ""
}

// Bind records the registered identity. It fails once the session is closed.
func (s *Session) Bind(id domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrConnClosed
	}
	s.identity = id
	return nil
}

// MarkClosed moves the session to its terminal state. Only the first call
// returns true.
func (s *Session) MarkClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	return true
}

func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// State reports the lifecycle state. Active cannot be told apart from
// Registered by the session alone, so callers pass whether it has joined
// any room.
func (s *Session) State(joined bool) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.closed:
		return StateClosed
	case s.identity == "":
		return StateConnected
	case joined:
		return StateActive
	default:
		return StateRegistered
	}
}

// Send enqueues f on the session's transport.
func (s *Session) Send(f Frame) error {
	if s.Closed() {
		return ErrConnClosed
	}
	return s.conn.TrySend(f)
}

// CloseTransport closes the underlying connection. Safe to call repeatedly
// as long as the SignalConnection's Close is.
func (s *Session) CloseTransport() { s.conn.Close() }
