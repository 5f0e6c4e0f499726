package wakerbench

import (
	"time"
)

// CallbackWaker wakes a scheduler by submitting a callback onto its ready
// queue, holding an ExecutionLock for the duration of the submit. Every
// signal therefore pays for the lock, contended against anything else
// holding it, typically the scheduler itself.
//
// Signal must not be called by code which already holds the lock, e.g. a
// callback run by a scheduler configured with the same lock.
type CallbackWaker struct {
	callback func()
	sched    Scheduler
	lock     *ExecutionLock
	launcher *Launcher
}

// NewCallbackWaker returns a waker that submits callback to s. The scheduler
// is not owned by the waker.
func NewCallbackWaker(callback func(), s Scheduler, opts ...WakerOption) (*CallbackWaker, error) {
	if schedulerClosed(s) {
		return nil, ErrInvalidHandle
	}
	if callback == nil {
		return nil, ErrNilCallback
	}
	cfg, err := resolveWakerOptions(opts)
	if err != nil {
		return nil, err
	}
	return &CallbackWaker{
		callback: callback,
		sched:    s,
		lock:     cfg.lock,
		launcher: cfg.launcher,
	}, nil
}

// Lock returns the execution lock signals acquire.
func (w *CallbackWaker) Lock() *ExecutionLock {
	return w.lock
}

// Signal acquires the execution lock, submits the callback, then releases
// the lock. A torn down scheduler fails with ErrInvalidHandle.
func (w *CallbackWaker) Signal() error {
	if schedulerClosed(w.sched) {
		return ErrInvalidHandle
	}
	w.lock.Acquire()
	defer w.lock.Release()
	return w.sched.Submit(w.callback)
}

// SignalFromForeignThread spawns a worker thread which sleeps for delay then
// calls Signal. It returns once the worker is started.
func (w *CallbackWaker) SignalFromForeignThread(delay time.Duration) (*Worker, error) {
	return w.launcher.Spawn(delay, w.Signal)
}

// SignalBurstFromForeignThread spawns a worker thread which calls Signal
// count times, back to back.
func (w *CallbackWaker) SignalBurstFromForeignThread(count int) (*Worker, error) {
	return w.launcher.Spawn(0, func() error {
		return signalN(w.Signal, count)
	})
}
