package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []Frame
	closed int
}

func (c *fakeConn) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
}

func TestSessionStates(t *testing.T) {
	s := NewSession(NewSessionID(), &fakeConn{})
	if got := s.State(false); got != StateConnected {
		t.Fatalf("initial state = %v, want connected", got)
	}
	if err := s.Bind("u1"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if got := s.State(false); got != StateRegistered {
		t.Errorf("after bind = %v, want registered", got)
	}
	if got := s.State(true); got != StateActive {
		t.Errorf("joined = %v, want active", got)
	}
	if !s.MarkClosed() {
		t.Fatal("first MarkClosed should report true")
	}
	if s.MarkClosed() {
		t.Error("second MarkClosed should report false")
	}
	if got := s.State(true); got != StateClosed {
		t.Errorf("after close = %v, want closed", got)
	}
	if err := s.Bind("u2"); !errors.Is(err, ErrConnClosed) {
		t.Errorf("Bind after close: got %v, want ErrConnClosed", err)
	}
	if err := s.Send(Frame("x")); !errors.Is(err, ErrConnClosed) {
		t.Errorf("Send after close: got %v, want ErrConnClosed", err)
	}
}

func TestSessionIdentity(t *testing.T) {
	s := NewSession("sid-1", &fakeConn{})
	if _, ok := s.Identity(); ok {
		t.Fatal("fresh session should have no identity")
	}
	_ = s.Bind("u1")
	id, ok := s.Identity()
	if !ok || id != "u1" {
		t.Errorf("Identity = %q, %v", id, ok)
	}
}

func TestNewSessionIDUnique(t *testing.T) {
	seen := make(map[SessionID]bool)
	for i := 0; i < 100; i++ {
		id := NewSessionID()
		if seen[id] {
			t.Fatalf("duplicate session id %s", id)
		}
		seen[id] = true
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrTargetNotConnected, CodeTargetNotConnected},
		{fmt.Errorf("answer to u9: %w", ErrTargetNotConnected), CodeTargetNotConnected},
		{ErrBackpressure, CodeTargetNotConnected},
		{ErrConnClosed, CodeTargetNotConnected},
		{fmt.Errorf("%w: missing to", ErrInvalidMessage), CodeInvalidMessage},
		{errors.New("boom"), CodeInternal},
	}
	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.want {
			t.Errorf("ErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestAckFor(t *testing.T) {
	if got := AckFor(nil); !got.Success || got.Error != "" {
		t.Errorf("AckFor(nil) = %+v", got)
	}
	got := AckFor(ErrTargetNotConnected)
	if got.Success || got.Error != CodeTargetNotConnected {
		t.Errorf("AckFor(ErrTargetNotConnected) = %+v", got)
	}
	b, _ := json.Marshal(AckFor(nil))
	if string(b) != `{"success":true}` {
		t.Errorf("ack json = %s", b)
	}
}

func TestEncodeEvent(t *testing.T) {
	f, err := EncodeEvent(EventOffer, 0, OfferOut{FromUserID: "u1", Offer: json.RawMessage(`"sdp-blob"`), Type: "video"})
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	want := `{"event":"offer","data":{"fromUserId":"u1","offer":"sdp-blob","type":"video"}}`
	if string(f) != want {
		t.Errorf("got %s\nwant %s", f, want)
	}

	f, _ = EncodeEvent(EventEndCall, 0, Empty{})
	if string(f) != `{"event":"end-call","data":{}}` {
		t.Errorf("end-call frame = %s", f)
	}

	f, _ = EncodeEvent(EventAck, 7, AckFor(nil))
	if string(f) != `{"event":"ack","id":7,"data":{"success":true}}` {
		t.Errorf("ack frame = %s", f)
	}
}
