package app

import (
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/callrelay/internal/core/coretest"
)

func TestRegistry_LastRegisterWins(t *testing.T) {
	reg := NewRegistry()
	c1, _ := coretest.Session("c1")
	c2, _ := coretest.Session("c2")

	if prev := reg.Register("u1", c1); prev != nil {
		t.Fatalf("first register returned prev %v", prev.ID())
	}
	if prev := reg.Register("u1", c2); prev != c1 {
		t.Fatalf("second register prev = %v, want c1", prev)
	}

	got, ok := reg.Lookup("u1")
	if !ok || got != c2 {
		t.Fatalf("Lookup(u1) = %v, %v; want c2", got, ok)
	}
}

func TestRegistry_RegisterSameSessionTwice(t *testing.T) {
	reg := NewRegistry()
	c1, _ := coretest.Session("c1")
	reg.Register("u1", c1)
	if prev := reg.Register("u1", c1); prev != nil {
		t.Errorf("re-register same session returned prev %v", prev.ID())
	}
}

func TestRegistry_UnregisterStaleIsNoop(t *testing.T) {
	reg := NewRegistry()
	c1, _ := coretest.Session("c1")
	c2, _ := coretest.Session("c2")
	_ = c1.Bind("u1")
	_ = c2.Bind("u1")
	reg.Register("u1", c1)
	reg.Register("u1", c2)

	if reg.Unregister(c1) {
		t.Error("Unregister of superseded session reported removal")
	}
	got, ok := reg.Lookup("u1")
	if !ok || got != c2 {
		t.Fatalf("entry changed after stale unregister: %v, %v", got, ok)
	}

	if !reg.Unregister(c2) {
		t.Error("Unregister of current holder should remove it")
	}
	if _, ok := reg.Lookup("u1"); ok {
		t.Error("u1 still registered")
	}
}

// A session that closes between Register and its closed check hands the
// identity back to the session it replaced.
func TestRegistry_RestoreAfterClosedRegistration(t *testing.T) {
	reg := NewRegistry()
	c1, _ := coretest.Session("c1")
	c2, _ := coretest.Session("c2")
	_ = c1.Bind("u1")
	_ = c2.Bind("u1")
	reg.Register("u1", c1)
	prev := reg.Register("u1", c2)

	// Disconnect of c2 runs in between.
	c2.MarkClosed()
	reg.Unregister(c2)

	if !reg.Restore("u1", c2, prev) {
		t.Fatal("Restore reported no change")
	}
	if got, ok := reg.Lookup("u1"); !ok || got != c1 {
		t.Fatalf("Lookup(u1) = %v, %v; want c1", got, ok)
	}
}

func TestRegistry_RestoreClosedPrevious(t *testing.T) {
	reg := NewRegistry()
	c1, _ := coretest.Session("c1")
	c2, _ := coretest.Session("c2")
	reg.Register("u1", c1)
	prev := reg.Register("u1", c2)
	c1.MarkClosed()
	c2.MarkClosed()

	reg.Restore("u1", c2, prev)
	if reg.Online("u1") {
		t.Error("closed sessions must not stay registered")
	}
}

func TestRegistry_RestoreKeepsNewerRegistration(t *testing.T) {
	reg := NewRegistry()
	c1, _ := coretest.Session("c1")
	c2, _ := coretest.Session("c2")
	c3, _ := coretest.Session("c3")
	reg.Register("u1", c1)
	prev := reg.Register("u1", c2)
	reg.Register("u1", c3)
	c2.MarkClosed()

	if reg.Restore("u1", c2, prev) {
		t.Error("Restore replaced a newer registration")
	}
	if got, _ := reg.Lookup("u1"); got != c3 {
		t.Fatalf("Lookup(u1) = %v, want c3", got)
	}
}

func TestRegistry_UnregisterUnknown(t *testing.T) {
	reg := NewRegistry()
	anon, _ := coretest.Session("anon")
	if reg.Unregister(anon) {
		t.Error("unbound session should not unregister anything")
	}
	ghost, _ := coretest.Session("ghost")
	_ = ghost.Bind("nobody")
	if reg.Unregister(ghost) {
		t.Error("identity never registered should be a no-op")
	}
	if reg.Count() != 0 {
		t.Errorf("Count = %d", reg.Count())
	}
}

func TestRegistry_LookupMissing(t *testing.T) {
	reg := NewRegistry()
	if s, ok := reg.Lookup("missing"); ok || s != nil {
		t.Errorf("Lookup(missing) = %v, %v", s, ok)
	}
	if reg.Online("missing") {
		t.Error("Online(missing) = true")
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, _ := coretest.Session(fmt.Sprintf("c%d", i))
			id := fmt.Sprintf("u%d", i%10)
			_ = s.Bind(toUserID(id))
			reg.Register(toUserID(id), s)
			reg.Lookup(toUserID(id))
			if i%2 == 0 {
				reg.Unregister(s)
			}
		}(i)
	}
	wg.Wait()
	if reg.Count() > 10 {
		t.Errorf("Count = %d, want <= 10", reg.Count())
	}
}
