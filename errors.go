package wakerbench

import (
	"errors"
	"fmt"
)

// Standard errors. Every one of them aborts the benchmark run it occurs in:
// a silently dropped sample would corrupt the measured distribution.
var (
	// ErrResourceExhausted indicates the kernel object backing a
	// NotificationChannel could not be allocated.
	ErrResourceExhausted = errors.New("wakerbench: resource exhausted")

	// ErrChannelClosed indicates an operation on a destroyed NotificationChannel.
	ErrChannelClosed = errors.New("wakerbench: channel closed")

	// ErrInvalidHandle indicates a missing or torn down scheduler.
	ErrInvalidHandle = errors.New("wakerbench: invalid scheduler handle")

	// ErrThreadSpawnFailed indicates a worker thread could not be started.
	ErrThreadSpawnFailed = errors.New("wakerbench: thread spawn failed")

	// ErrWaitTimeout indicates a trial's wakeup was not observed within the
	// configured bound.
	ErrWaitTimeout = errors.New("wakerbench: wakeup wait timed out")

	// ErrInvalidSample indicates a non-positive latency measurement.
	ErrInvalidSample = errors.New("wakerbench: invalid latency sample")

	// ErrNilCallback is returned by NewCallbackWaker for a nil callback.
	ErrNilCallback = errors.New("wakerbench: nil callback")

	// ErrMechanismOpen indicates a mechanism could not be set up for a run.
	ErrMechanismOpen = errors.New("wakerbench: mechanism open failed")

	// ErrWakerState indicates a waker operation invalid for its current state.
	ErrWakerState = errors.New("wakerbench: invalid waker state")

	// ErrWorkerExited indicates a worker thread exited without returning
	// from its trigger, e.g. via runtime.Goexit.
	ErrWorkerExited = errors.New("wakerbench: worker exited before signalling")
)

// TrialError reports the trial that aborted a benchmark run.
type TrialError struct {
	Err       error
	Mechanism string
	Iteration int
	Warmup    bool
}

// Error implements the error interface.
func (e *TrialError) Error() string {
	pass := "measured"
	if e.Warmup {
		pass = "warmup"
	}
	return fmt.Sprintf("wakerbench: %s: %s iteration %d: %v", e.Mechanism, pass, e.Iteration, e.Err)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *TrialError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking worker trigger.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("wakerbench: worker panicked: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
