package loop

import (
	"context"
	"sync"
)

// Event is a set/clear/wait synchronization primitive. A waiting goroutine
// suspends until another party calls Set. Clear resets it, so waiters that
// arrive afterwards block until the next Set.
//
// The zero value is not usable, see NewEvent.
type Event struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
}

// NewEvent returns a new, unset, Event.
func NewEvent() *Event {
	return &Event{ch: make(chan struct{})}
}

// Set marks the event, releasing every current waiter. Idempotent.
func (e *Event) Set() {
	e.mu.Lock()
	if !e.set {
		e.set = true
		close(e.ch)
	}
	e.mu.Unlock()
}

// Clear resets the event to the unset state. Idempotent.
func (e *Event) Clear() {
	e.mu.Lock()
	if e.set {
		e.set = false
		e.ch = make(chan struct{})
	}
	e.mu.Unlock()
}

// IsSet reports whether the event is currently set.
func (e *Event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

// Wait blocks until the event is set, or ctx is done, in which case it
// returns context.Cause(ctx).
func (e *Event) Wait(ctx context.Context) error {
	e.mu.Lock()
	ch := e.ch
	e.mu.Unlock()

	select {
	case <-ch:
		return nil
	default:
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
