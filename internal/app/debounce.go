package app

import (
	"sync"
	"time"
)

// Debouncer runs only the last of a burst of calls, once the calls have
// stopped for the configured delay.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending func()
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn, replacing any call still waiting. fn runs on a
// timer goroutine.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.pending = fn
	if d.delay <= 0 {
		d.runLocked()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.runLocked()
}

// runLocked takes the pending call and runs it without holding mu.
func (d *Debouncer) runLocked() {
	fn := d.pending
	d.pending = nil
	if fn == nil {
		return
	}
	d.mu.Unlock()
	defer d.mu.Lock()
	fn()
}

// Flush runs the waiting call immediately, if any.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.runLocked()
}

// Stop drops any waiting call and ignores later triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
	}
}
