package watch

import (
	"context"
	"time"
)

type firing struct {
	rel string
	gen uint64
}

type pending struct {
	timer *time.Timer
	gen   uint64
}

// debouncer holds one timer per path. Each timer is tagged with a
// generation so a timer that fired just before being replaced is ignored.
type debouncer struct {
	delay  time.Duration
	fired  chan firing
	timers map[string]pending
	gen    uint64
}

func newDebouncer(delay time.Duration, size int) *debouncer {
	return &debouncer{delay: delay, fired: make(chan firing, size), timers: make(map[string]pending)}
}

// schedule (re)starts the timer for rel.
func (d *debouncer) schedule(ctx context.Context, rel string) {
	if p, ok := d.timers[rel]; ok {
		p.timer.Stop()
	}
	d.gen++
	f := firing{rel: rel, gen: d.gen}
	d.timers[rel] = pending{gen: f.gen, timer: time.AfterFunc(d.delay, func() {
		select {
		case d.fired <- f:
		case <-ctx.Done():
		}
	})}
}

// settle reports whether f is the latest timer for its path, forgetting the
// timer when it is.
func (d *debouncer) settle(f firing) bool {
	p, ok := d.timers[f.rel]
	if !ok || p.gen != f.gen {
		return false
	}
	delete(d.timers, f.rel)
	return true
}

func (d *debouncer) stop() {
	for _, p := range d.timers {
		p.timer.Stop()
	}
}
