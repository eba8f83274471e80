package watch

import (
	"context"
	"testing"
	"time"
)

func TestDebouncerIgnoresReplacedTimer(t *testing.T) {
	t.Parallel()
	d := newDebouncer(time.Hour, 4)
	defer d.stop()
	ctx := context.Background()

	d.schedule(ctx, "a.txt")
	first := firing{rel: "a.txt", gen: d.gen}
	d.schedule(ctx, "a.txt")
	second := firing{rel: "a.txt", gen: d.gen}

	if d.settle(first) {
		t.Fatal("expected replaced timer to be ignored")
	}
	if _, ok := d.timers["a.txt"]; !ok {
		t.Fatal("replaced timer firing removed the pending timer")
	}
	if !d.settle(second) {
		t.Fatal("expected latest timer to settle")
	}
	if d.settle(second) {
		t.Fatal("expected a settled timer to be forgotten")
	}
}

func TestDebouncerCoalescesBursts(t *testing.T) {
	t.Parallel()
	d := newDebouncer(20*time.Millisecond, 4)
	defer d.stop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 3; i++ {
		d.schedule(ctx, "a.txt")
	}
	settled := 0
	deadline := time.After(300 * time.Millisecond)
	for {
		select {
		case f := <-d.fired:
			if d.settle(f) {
				settled++
			}
		case <-deadline:
			if settled != 1 {
				t.Fatalf("expected one settled firing, got %d", settled)
			}
			return
		}
	}
}
