package wakerbench

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Mechanism is one way of waking the scheduler from a foreign thread, as
// driven by the Harness.
type Mechanism interface {
	// Name is the label used in reports.
	Name() string

	// Open prepares the mechanism for a run. Each wakeup it delivers results
	// in a call to wake, on the scheduler goroutine, with the number of
	// signals it accounts for.
	Open(s Scheduler, wake func(units int)) error

	// Trigger starts a single asynchronous signal, delivered after delay. It
	// must not wait for the scheduler, and must give up if ctx is done before
	// the signal could be started. If the signal fails after Trigger has
	// returned, fail is called with the cause.
	Trigger(ctx context.Context, delay time.Duration, fail func(err error)) error

	// Close releases everything acquired by Open.
	Close() error
}

// BurstMechanism is a Mechanism able to deliver many signals from one
// foreign thread.
type BurstMechanism interface {
	Mechanism
	TriggerBurst(ctx context.Context, count int, fail func(err error)) error
}

var errMechanismNotOpen = errors.New("wakerbench: mechanism not open")

// FdMechanism signals through an FdWaker, taking no lock.
type FdMechanism struct {
	opts  []WakerOption
	waker *FdWaker
}

var _ BurstMechanism = (*FdMechanism)(nil)

// NewFdMechanism returns a mechanism which creates its FdWaker with opts.
func NewFdMechanism(opts ...WakerOption) *FdMechanism {
	return &FdMechanism{opts: opts}
}

// Name implements Mechanism.
func (m *FdMechanism) Name() string {
	return "FD-based (no lock)"
}

// Waker returns the waker of the current run, or nil.
func (m *FdMechanism) Waker() *FdWaker {
	return m.waker
}

// Open implements Mechanism.
func (m *FdMechanism) Open(s Scheduler, wake func(units int)) error {
	if m.waker != nil {
		return fmt.Errorf("%w: already open", ErrWakerState)
	}
	waker, err := NewFdWaker(m.opts...)
	if err != nil {
		return err
	}
	if err := waker.Arm(s, wake); err != nil {
		return errors.Join(err, waker.Close())
	}
	m.waker = waker
	return nil
}

// Trigger implements Mechanism.
func (m *FdMechanism) Trigger(_ context.Context, delay time.Duration, fail func(err error)) error {
	if m.waker == nil {
		return errMechanismNotOpen
	}
	return onFailure(m.waker.SignalFromForeignThread(delay))(fail)
}

// TriggerBurst implements BurstMechanism.
func (m *FdMechanism) TriggerBurst(_ context.Context, count int, fail func(err error)) error {
	if m.waker == nil {
		return errMechanismNotOpen
	}
	return onFailure(m.waker.SignalBurstFromForeignThread(count))(fail)
}

// Close implements Mechanism.
func (m *FdMechanism) Close() error {
	if m.waker == nil {
		return nil
	}
	err := m.waker.Close()
	m.waker = nil
	return err
}

// CallbackMechanism signals through a CallbackWaker, paying for the
// execution lock on every signal.
type CallbackMechanism struct {
	opts  []WakerOption
	waker *CallbackWaker
}

var _ BurstMechanism = (*CallbackMechanism)(nil)

// NewCallbackMechanism returns a mechanism which creates its CallbackWaker
// with opts.
func NewCallbackMechanism(opts ...WakerOption) *CallbackMechanism {
	return &CallbackMechanism{opts: opts}
}

// Name implements Mechanism.
func (m *CallbackMechanism) Name() string {
	return "Enqueue callback (lock)"
}

// Open implements Mechanism.
func (m *CallbackMechanism) Open(s Scheduler, wake func(units int)) error {
	if m.waker != nil {
		return fmt.Errorf("%w: already open", ErrWakerState)
	}
	if wake == nil {
		return ErrNilCallback
	}
	waker, err := NewCallbackWaker(func() { wake(1) }, s, m.opts...)
	if err != nil {
		return err
	}
	m.waker = waker
	return nil
}

// Trigger implements Mechanism.
func (m *CallbackMechanism) Trigger(_ context.Context, delay time.Duration, fail func(err error)) error {
	if m.waker == nil {
		return errMechanismNotOpen
	}
	return onFailure(m.waker.SignalFromForeignThread(delay))(fail)
}

// TriggerBurst implements BurstMechanism.
func (m *CallbackMechanism) TriggerBurst(_ context.Context, count int, fail func(err error)) error {
	if m.waker == nil {
		return errMechanismNotOpen
	}
	return onFailure(m.waker.SignalBurstFromForeignThread(count))(fail)
}

// Close implements Mechanism.
func (m *CallbackMechanism) Close() error {
	m.waker = nil
	return nil
}

// ExecutorMechanism is the baseline: each trigger runs a function on the
// scheduler's single-worker executor, and the completion delivered back onto
// the scheduler is the wakeup. The scheduler must implement ExecutorBridge.
type ExecutorMechanism struct {
	executor Executor
	wake     func(units int)
	// guards executor against a concurrent Close
	mu sync.Mutex
}

var _ Mechanism = (*ExecutorMechanism)(nil)

// NewExecutorMechanism returns the executor bridge baseline.
func NewExecutorMechanism() *ExecutorMechanism {
	return &ExecutorMechanism{}
}

// Name implements Mechanism.
func (m *ExecutorMechanism) Name() string {
	return "Executor bridge"
}

// Open implements Mechanism.
func (m *ExecutorMechanism) Open(s Scheduler, wake func(units int)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.executor != nil {
		return fmt.Errorf("%w: already open", ErrWakerState)
	}
	if schedulerClosed(s) {
		return ErrInvalidHandle
	}
	bridge, ok := s.(ExecutorBridge)
	if !ok {
		return fmt.Errorf("%w: scheduler has no executor bridge", ErrInvalidHandle)
	}
	executor, err := bridge.NewExecutor()
	if err != nil {
		return err
	}
	m.executor = executor
	m.wake = wake
	return nil
}

// Trigger implements Mechanism.
func (m *ExecutorMechanism) Trigger(ctx context.Context, delay time.Duration, fail func(err error)) error {
	m.mu.Lock()
	executor, wake := m.executor, m.wake
	m.mu.Unlock()
	if executor == nil {
		return errMechanismNotOpen
	}
	return executor.Run(ctx, func(ctx context.Context) error {
		if delay <= 0 {
			return nil
		}
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return context.Cause(ctx)
		}
	}, func(err error) {
		if err != nil {
			if fail != nil {
				fail(err)
			}
			return
		}
		if wake != nil {
			wake(1)
		}
	})
}

// Close implements Mechanism.
func (m *ExecutorMechanism) Close() error {
	m.mu.Lock()
	executor := m.executor
	m.executor = nil
	m.wake = nil
	m.mu.Unlock()
	if executor == nil {
		return nil
	}
	return executor.Close()
}

// onFailure adapts a spawn result, registering fail with the worker.
func onFailure(w *Worker, err error) func(fail func(err error)) error {
	return func(fail func(err error)) error {
		if err != nil {
			return err
		}
		if fail != nil {
			w.OnFailure(fail)
		}
		return nil
	}
}
