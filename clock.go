package wakerbench

import (
	"time"
)

// Clock is a monotonic clock with nanosecond resolution. Now returns the
// time elapsed since an arbitrary, fixed, origin. The Harness reads it from
// the scheduler goroutine as well as its own, so it must be safe for
// concurrent use.
type Clock interface {
	Now() time.Duration
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Duration

// Now implements Clock.
func (f ClockFunc) Now() time.Duration {
	return f()
}

type monotonicClock struct {
	origin time.Time
}

// NewMonotonicClock returns a Clock reading the runtime's monotonic clock,
// with its origin at the time of the call.
func NewMonotonicClock() Clock {
	return monotonicClock{origin: time.Now()}
}

func (c monotonicClock) Now() time.Duration {
	return time.Since(c.origin)
}
