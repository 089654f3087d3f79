package watcher

import (
	"sync"
	"time"

	"github.com/ClaytonHunt/cascade/internal/record"
)

// DefaultDebounce is the quiet interval after which a path is considered
// settled.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer collapses bursts of raw file events into a single settled
// callback per normalized path after a quiet interval. Each path owns an
// independent timer, so a chatty file never delays an unrelated one. A timer
// is removed from the bookkeeping map the moment it fires.
type Debouncer struct {
	interval  time.Duration
	onSettled func(path string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewDebouncer creates a debouncer firing onSettled(normalizedPath) after
// interval of silence for that path. interval <= 0 selects DefaultDebounce.
func NewDebouncer(interval time.Duration, onSettled func(path string)) *Debouncer {
	if interval <= 0 {
		interval = DefaultDebounce
	}
	return &Debouncer{
		interval:  interval,
		onSettled: onSettled,
		timers:    make(map[string]*time.Timer),
	}
}

// Notify schedules (or reschedules) the settled callback for path. Safe for
// arbitrary concurrent callers; a notify for one path never touches another
// path's timer.
//
// Stop on an already-fired timer returns false, so a notify can race the
// firing callback: the callback checks that the bookkeeping entry is still
// its own timer before cleaning up, and a superseded callback yields the
// settle to its replacement instead of delivering a stale one.
func (d *Debouncer) Notify(path string) {
	key := record.NormalizePath(path)

	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		if d.timers[key] != t {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		d.onSettled(key)
	})
	d.timers[key] = t
}

// Pending returns the number of in-flight timers.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Stop cancels every pending timer. A callback already firing finds its
// bookkeeping entry gone and delivers nothing.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}
