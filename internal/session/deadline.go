package session

import (
	"sync"
	"time"
)

// DeadlineController counts down to a fixed end time and fires exactly one
// expiry callback. States: Idle until Start, Running while ticking, Expired
// once the deadline passes. Expired is terminal and reachable exactly once;
// ticks after expiry never re-fire. Stop cancels the recurring tick so a
// controller cannot fire into a torn-down session.
//
// Attempts without a time limit never get a controller at all; callers treat
// remaining time as unbounded.
type DeadlineController struct {
	deadline time.Time
	interval time.Duration
	now      func() time.Time
	onExpire func()

	mu      sync.Mutex
	started bool
	expired bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// NewDeadlineController creates a controller for the given deadline. The
// callback runs on the controller's goroutine, at most once.
func NewDeadlineController(deadline time.Time, onExpire func()) *DeadlineController {
	return &DeadlineController{
		deadline: deadline,
		interval: time.Second,
		now:      time.Now,
		onExpire: onExpire,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// newDeadlineControllerWithClock is the test seam: a shorter tick interval
// and an injectable clock.
func newDeadlineControllerWithClock(deadline time.Time, interval time.Duration, now func() time.Time, onExpire func()) *DeadlineController {
	d := NewDeadlineController(deadline, onExpire)
	d.interval = interval
	if now != nil {
		d.now = now
	}
	return d
}

// Start begins ticking. Calling Start more than once is a no-op.
func (d *DeadlineController) Start() {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	go d.run()
}

func (d *DeadlineController) run() {
	defer close(d.done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			if d.Remaining() > 0 {
				continue
			}
			d.mu.Lock()
			if d.expired || d.stopped {
				d.mu.Unlock()
				return
			}
			d.expired = true
			d.mu.Unlock()

			// Fired outside the lock: the callback typically submits the
			// attempt and calls back into Remaining.
			if d.onExpire != nil {
				d.onExpire()
			}
			return
		}
	}
}

// Stop cancels the recurring tick. Safe to call multiple times and after
// expiry. It does not wait for an in-flight expiry callback.
func (d *DeadlineController) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	close(d.stop)
}

// Remaining reports the time left until the deadline, clamped at zero.
func (d *DeadlineController) Remaining() time.Duration {
	remaining := d.deadline.Sub(d.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the expiry callback has fired (or is firing).
func (d *DeadlineController) Expired() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.expired
}
