package watcher

import (
	"sync"
	"time"
)

// Debouncer runs the most recently triggered function once no trigger has
// arrived for delay.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	gen     uint64 // bumped on every Trigger/Cancel/Flush; stale timers check it
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger replaces the pending function and restarts the quiet period.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.pending = fn
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Cancel drops the pending function.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.stopLocked()
	d.pending = nil
	d.mu.Unlock()
}

// Flush runs the pending function now, in the caller's goroutine.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.pending
	d.stopLocked()
	d.pending = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending, d.timer = nil, nil
	d.mu.Unlock()

	fn()
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}
