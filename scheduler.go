package wakerbench

import (
	"context"
	"errors"
	"fmt"

	"github.com/joeycumines/go-wakerbench/internal/loop"
)

// Scheduler is the capability set the wakers and the harness need from a
// single-threaded cooperative scheduler. Every callback it is handed must run
// on its own, single, goroutine.
type Scheduler interface {
	// RegisterReadable arranges for cb to be called on the scheduler
	// goroutine whenever fd is readable.
	RegisterReadable(fd int, cb func()) error

	// Deregister removes a registration made by RegisterReadable.
	Deregister(fd int) error

	// Submit enqueues cb onto the ready queue. It must be safe to call from
	// any goroutine, and must never wait on the scheduler.
	Submit(cb func()) error

	// NewEvent returns a new, unset, synchronization primitive.
	NewEvent() Event
}

// Event is a set/clear/wait synchronization primitive.
type Event interface {
	Set()
	Clear()
	IsSet() bool
	// Wait suspends the caller until the event is set, returning
	// context.Cause(ctx) if ctx is done first.
	Wait(ctx context.Context) error
}

// ExecutorBridge is the optional capability of a Scheduler to run functions
// on a worker, delivering completions back onto the scheduler.
type ExecutorBridge interface {
	NewExecutor() (Executor, error)
}

// Executor runs functions off the scheduler goroutine.
type Executor interface {
	// Run hands fn to the executor. The done callback, if non-nil, is later
	// called with the outcome, on the scheduler goroutine.
	Run(ctx context.Context, fn func(ctx context.Context) error, done func(err error)) error
	Close() error
}

type closedScheduler interface {
	Closed() bool
}

// schedulerClosed reports whether s is nil, or reports itself torn down.
func schedulerClosed(s Scheduler) bool {
	if s == nil {
		return true
	}
	if c, ok := s.(closedScheduler); ok {
		return c.Closed()
	}
	return false
}

// LoopScheduler adapts a *loop.Loop to the Scheduler interface.
type LoopScheduler struct {
	loop *loop.Loop
}

var (
	_ Scheduler      = (*LoopScheduler)(nil)
	_ ExecutorBridge = (*LoopScheduler)(nil)
)

// NewLoopScheduler wraps l. It panics if l is nil.
func NewLoopScheduler(l *loop.Loop) *LoopScheduler {
	if l == nil {
		panic(`wakerbench: nil loop`)
	}
	return &LoopScheduler{loop: l}
}

// Loop returns the wrapped loop.
func (x *LoopScheduler) Loop() *loop.Loop {
	return x.loop
}

// RegisterReadable implements Scheduler.
func (x *LoopScheduler) RegisterReadable(fd int, cb func()) error {
	return x.mapErr(x.loop.RegisterFD(fd, loop.EventRead, func(loop.IOEvents) {
		cb()
	}))
}

// Deregister implements Scheduler.
func (x *LoopScheduler) Deregister(fd int) error {
	return x.loop.UnregisterFD(fd)
}

// Submit implements Scheduler.
func (x *LoopScheduler) Submit(cb func()) error {
	return x.mapErr(x.loop.Submit(cb))
}

// NewEvent implements Scheduler.
func (x *LoopScheduler) NewEvent() Event {
	return x.loop.NewEvent()
}

// NewExecutor implements ExecutorBridge.
func (x *LoopScheduler) NewExecutor() (Executor, error) {
	e, err := x.loop.NewExecutor()
	if err != nil {
		return nil, x.mapErr(err)
	}
	return e, nil
}

// Closed reports whether the loop is terminating or terminated.
func (x *LoopScheduler) Closed() bool {
	switch x.loop.State() {
	case loop.StateTerminating, loop.StateTerminated:
		return true
	default:
		return false
	}
}

func (x *LoopScheduler) mapErr(err error) error {
	if errors.Is(err, loop.ErrLoopTerminated) || errors.Is(err, loop.ErrPollerClosed) {
		return fmt.Errorf("%w: %w", ErrInvalidHandle, err)
	}
	return err
}
