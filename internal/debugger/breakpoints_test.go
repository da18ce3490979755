package debugger

import "testing"

func TestBreakpointManagerSetAndHas(t *testing.T) {
	bm := NewBreakpointManager()
	bm.Set(0x10)
	if !bm.Has(0x10) {
		t.Error("Has returned false for a set breakpoint")
	}
	if bm.Has(0x20) {
		t.Error("Has returned true for an unset breakpoint")
	}
}

func TestBreakpointManagerClear(t *testing.T) {
	bm := NewBreakpointManager()
	bm.Set(0x10)
	if !bm.Clear(0x10) {
		t.Error("Clear returned false for a set breakpoint")
	}
	if bm.Has(0x10) {
		t.Error("breakpoint still present after Clear")
	}
	if bm.Clear(0x10) {
		t.Error("Clear returned true for an already-cleared breakpoint")
	}
}

func TestBreakpointManagerList(t *testing.T) {
	bm := NewBreakpointManager()
	bm.Set(1)
	bm.Set(2)
	bm.Set(3)
	got := bm.List()
	if len(got) != 3 {
		t.Fatalf("got %d breakpoints, want 3", len(got))
	}
	seen := map[int64]bool{}
	for _, addr := range got {
		seen[addr] = true
	}
	for _, want := range []int64{1, 2, 3} {
		if !seen[want] {
			t.Errorf("List missing address %d", want)
		}
	}
}
