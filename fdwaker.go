package wakerbench

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// WakerState is the registration state of an FdWaker.
type WakerState uint32

const (
	// WakerIdle means not registered with a scheduler.
	WakerIdle WakerState = iota
	// WakerArmed means registered for readability.
	WakerArmed
	// WakerSignaled means readability was observed, and the channel is being
	// drained.
	WakerSignaled
	// WakerClosed is terminal.
	WakerClosed
)

// String returns a human-readable representation of the state.
func (s WakerState) String() string {
	switch s {
	case WakerIdle:
		return "Idle"
	case WakerArmed:
		return "Armed"
	case WakerSignaled:
		return "Signaled"
	case WakerClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// FdWaker wakes a scheduler through a NotificationChannel registered for
// readability. Signalling takes no execution lock.
//
// The read side is driven entirely by the scheduler: Arm registers a
// callback which drains the channel then reports the drained units.
type FdWaker struct {
	ch       *NotificationChannel
	launcher *Launcher
	sched    Scheduler
	drainErr atomic.Pointer[error]
	mu       sync.Mutex
	state    atomic.Uint32
}

// NewFdWaker allocates the waker's channel, see WithChannelKind. The waker
// starts Idle.
func NewFdWaker(opts ...WakerOption) (*FdWaker, error) {
	cfg, err := resolveWakerOptions(opts)
	if err != nil {
		return nil, err
	}
	ch, err := NewNotificationChannel(cfg.channelKind)
	if err != nil {
		return nil, err
	}
	return &FdWaker{
		ch:       ch,
		launcher: cfg.launcher,
	}, nil
}

// State returns the current state.
func (w *FdWaker) State() WakerState {
	return WakerState(w.state.Load())
}

// ReadFD returns the read endpoint of the channel.
func (w *FdWaker) ReadFD() int {
	return w.ch.ReadFD()
}

// Kind returns the kind of the underlying channel.
func (w *FdWaker) Kind() ChannelKind {
	return w.ch.Kind()
}

// Arm registers the read endpoint with s. On each readability event the
// channel is drained, then onWake is called with the number of units
// consumed, on the scheduler goroutine. Readability without any units does
// not call onWake.
func (w *FdWaker) Arm(s Scheduler, onWake func(units int)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if state := w.State(); state != WakerIdle {
		return fmt.Errorf("%w: arm while %s", ErrWakerState, state)
	}
	if schedulerClosed(s) {
		return ErrInvalidHandle
	}

	// armed before registering, a pending unit may be dispatched at once
	w.state.Store(uint32(WakerArmed))
	if err := s.RegisterReadable(w.ch.ReadFD(), func() { w.onReadable(onWake) }); err != nil {
		w.state.Store(uint32(WakerIdle))
		return err
	}
	w.sched = s

	return nil
}

// Disarm deregisters the read endpoint, returning the waker to Idle.
func (w *FdWaker) Disarm() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.disarmLocked()
}

func (w *FdWaker) disarmLocked() error {
	switch state := w.State(); state {
	case WakerArmed, WakerSignaled:
	default:
		return fmt.Errorf("%w: disarm while %s", ErrWakerState, state)
	}
	err := w.sched.Deregister(w.ch.ReadFD())
	w.sched = nil
	w.state.Store(uint32(WakerIdle))
	return err
}

func (w *FdWaker) onReadable(onWake func(units int)) {
	if !w.state.CompareAndSwap(uint32(WakerArmed), uint32(WakerSignaled)) {
		// disarmed, but dispatch had already copied this callback
		return
	}

	units, err := w.ch.Drain()

	w.state.CompareAndSwap(uint32(WakerSignaled), uint32(WakerArmed))

	if err != nil {
		if !errors.Is(err, ErrChannelClosed) {
			// surfaced to the next Signal
			w.drainErr.CompareAndSwap(nil, &err)
		}
		return
	}

	if units > 0 && onWake != nil {
		onWake(units)
	}
}

// Signal writes one unit to the channel. Safe to call from any goroutine.
func (w *FdWaker) Signal() error {
	if err := w.drainErr.Load(); err != nil {
		return fmt.Errorf("wakerbench: drain failed: %w", *err)
	}
	return w.ch.Signal()
}

// SignalFromForeignThread spawns a worker thread which sleeps for delay then
// calls Signal. It returns once the worker is started.
func (w *FdWaker) SignalFromForeignThread(delay time.Duration) (*Worker, error) {
	return w.launcher.Spawn(delay, w.Signal)
}

// SignalBurstFromForeignThread spawns a worker thread which calls Signal
// count times, back to back.
func (w *FdWaker) SignalBurstFromForeignThread(count int) (*Worker, error) {
	return w.launcher.Spawn(0, func() error {
		return signalN(w.Signal, count)
	})
}

// Drain consumes any pending units directly. Idempotent.
func (w *FdWaker) Drain() (int, error) {
	return w.ch.Drain()
}

// Close disarms the waker if armed, then destroys its channel. Subsequent
// signals fail with ErrChannelClosed.
func (w *FdWaker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var err error
	switch w.State() {
	case WakerClosed:
		return ErrChannelClosed
	case WakerArmed, WakerSignaled:
		err = w.disarmLocked()
	}
	w.state.Store(uint32(WakerClosed))

	return errors.Join(err, w.ch.Close())
}

func signalN(signal func() error, count int) error {
	for i := 0; i < count; i++ {
		if err := signal(); err != nil {
			return fmt.Errorf("signal %d of %d: %w", i+1, count, err)
		}
	}
	return nil
}
