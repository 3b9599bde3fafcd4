package tui

import (
	"testing"
	"time"
)

func TestRecheckChainIsBounded(t *testing.T) {
	r := NewRecheck(time.Millisecond, 3)

	if cmd := r.Start(); cmd == nil {
		t.Fatal("Start returned no tick")
	}
	if r.Remaining() != 2 {
		t.Fatalf("remaining = %d, want 2", r.Remaining())
	}

	ticks := 0
	for r.Continue(1) != nil {
		ticks++
	}
	if ticks != 2 {
		t.Errorf("continued %d times, want 2", ticks)
	}
}

func TestRecheckStopsWhenIdle(t *testing.T) {
	r := NewRecheck(time.Millisecond, 30)
	r.Start()

	if cmd := r.Continue(0); cmd != nil {
		t.Error("chain continued without active downloads")
	}
	if r.Remaining() != 0 {
		t.Errorf("remaining = %d", r.Remaining())
	}
}

func TestRecheckStaleTicks(t *testing.T) {
	r := NewRecheck(time.Millisecond, 5)

	first := r.Start()
	msg := first().(MsgRecheck)
	if !r.Current(msg) {
		t.Fatal("tick of running chain reported stale")
	}

	r.Start()
	if r.Current(msg) {
		t.Error("tick of replaced chain reported current")
	}

	r.Stop()
	if r.Current(MsgRecheck{gen: r.gen - 1}) {
		t.Error("tick after Stop reported current")
	}
}
