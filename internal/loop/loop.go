package loop

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// Loop is a single-threaded cooperative scheduler.
//
// All callbacks, whether submitted or triggered by I/O readiness, execute on
// the goroutine that called Run, which is locked to its OS thread for the
// lifetime of the loop.
type Loop struct { // betteralign:ignore
	// Prevent copying
	_ [0]func()

	logger *logiface.Logger[logiface.Event]
	lock   Locker

	// State machine (cache-line padded internally)
	state *FastState

	poller FastPoller

	// Ready queue, swapped with queueBuf on each tick.
	queueMu  sync.Mutex
	queue    []func()
	queueBuf []func()

	// Wake-up mechanism
	wakeFd      int
	wakeFdWrite int
	wakeBuf     [8]byte
	wakePending atomic.Uint32

	// In-flight submit counter for shutdown synchronization
	inflight atomic.Int64

	loopGoroutineID atomic.Uint64
	loopDone        chan struct{}
	stopOnce        sync.Once

	pollTimeout time.Duration
	tickCount   uint64
	id          uint64
}

var loopIDCounter atomic.Uint64

// New creates a new loop. The loop does nothing until Run is called.
func New(opts ...LoopOption) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}

	wakeFd, wakeFdWrite, err := createWakeFd()
	if err != nil {
		return nil, err
	}

	l := &Loop{
		id:          loopIDCounter.Add(1),
		logger:      cfg.logger,
		lock:        cfg.lock,
		pollTimeout: cfg.pollTimeout,
		state:       NewFastState(),
		wakeFd:      wakeFd,
		wakeFdWrite: wakeFdWrite,
		loopDone:    make(chan struct{}),
	}

	if err := l.poller.Init(); err != nil {
		l.closeWakeFds()
		return nil, err
	}

	if err := l.poller.RegisterFD(wakeFd, EventRead, func(IOEvents) {
		l.drainWakeUpPipe()
	}); err != nil {
		_ = l.poller.Close()
		l.closeWakeFds()
		return nil, err
	}

	return l, nil
}

// ID returns the process-unique identifier of the loop.
func (l *Loop) ID() uint64 {
	return l.id
}

// State returns the current loop state.
func (l *Loop) State() LoopState {
	return l.state.Load()
}

// Run runs the event loop and blocks until fully stopped.
//
// Run blocks until the loop terminates (via Shutdown(), Close(), or ctx
// cancellation). To run in a separate goroutine, use: `go loop.Run(ctx)`.
func (l *Loop) Run(ctx context.Context) error {
	if l.isLoopThread() {
		return ErrReentrantRun
	}

	if !l.state.TryTransition(StateAwake, StateRunning) {
		if l.state.Load() == StateTerminated {
			return ErrLoopTerminated
		}
		return ErrLoopAlreadyRunning
	}

	defer close(l.loopDone)

	return l.run(ctx)
}

// Shutdown gracefully shuts down the event loop, running every task queued
// before termination. It blocks until termination completes or ctx expires.
func (l *Loop) Shutdown(ctx context.Context) error {
	var result error
	l.stopOnce.Do(func() {
		result = l.shutdownImpl(ctx)
	})
	if result == nil && l.state.Load() != StateTerminated {
		return ErrLoopTerminated
	}
	return result
}

func (l *Loop) shutdownImpl(ctx context.Context) error {
	for {
		currentState := l.state.Load()
		if currentState == StateTerminated || currentState == StateTerminating {
			return ErrLoopTerminated
		}

		if l.state.TryTransition(currentState, StateTerminating) {
			if currentState == StateAwake {
				l.state.Store(StateTerminated)
				l.closeFDs()
				return nil
			}
			if currentState == StateSleeping {
				_ = l.submitWakeup()
			}
			break
		}
	}

	select {
	case <-l.loopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close terminates the event loop without waiting for it to stop.
func (l *Loop) Close() error {
	for {
		currentState := l.state.Load()
		if currentState == StateTerminated {
			return ErrLoopTerminated
		}

		if l.state.TryTransition(currentState, StateTerminating) {
			if currentState == StateAwake {
				l.state.Store(StateTerminated)
				l.closeFDs()
				return nil
			}
			if currentState == StateSleeping {
				_ = l.submitWakeup()
			}
			return nil
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.loopDone
}

// run is the main loop goroutine.
func (l *Loop) run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.loopGoroutineID.Store(getGoroutineID())
	defer l.loopGoroutineID.Store(0)

	// wake the loop on cancellation
	ctxDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = l.submitWakeup()
		case <-ctxDone:
		}
	}()
	defer close(ctxDone)

	l.logger.Debug().
		Uint64("loop_id", l.id).
		Log("eventloop: running")

	for {
		select {
		case <-ctx.Done():
			for {
				current := l.state.Load()
				if current == StateTerminating || current == StateTerminated {
					break
				}
				if l.state.TryTransition(current, StateTerminating) {
					break
				}
			}
			l.shutdown()
			return ctx.Err()
		default:
		}

		if state := l.state.Load(); state == StateTerminating || state == StateTerminated {
			l.shutdown()
			return nil
		}

		l.tick()
	}
}

// tick is a single iteration of the event loop.
func (l *Loop) tick() {
	l.tickCount++

	l.acquire()
	l.processQueue()
	l.release()

	l.poll()
}

// processQueue runs every task queued at the time of the call, reporting
// whether any ran. Tasks submitted meanwhile run on the next tick.
func (l *Loop) processQueue() bool {
	l.queueMu.Lock()
	if len(l.queue) == 0 {
		l.queueMu.Unlock()
		return false
	}
	tasks := l.queue
	l.queue = l.queueBuf[:0]
	l.queueBuf = tasks[:0]
	l.queueMu.Unlock()

	for i, fn := range tasks {
		l.safeExecute(fn)
		tasks[i] = nil
	}
	return true
}

func (l *Loop) queueLen() int {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	return len(l.queue)
}

// poll performs the blocking poll, with the execution lock released.
func (l *Loop) poll() {
	if !l.state.TryTransition(StateRunning, StateSleeping) {
		return
	}

	// the transition must happen before this check, see Submit
	if l.queueLen() > 0 {
		l.state.TryTransition(StateSleeping, StateRunning)
		return
	}

	n, err := l.poller.Wait(int(l.pollTimeout.Milliseconds()))
	if err != nil {
		l.logger.Crit().
			Err(err).
			Uint64("loop_id", l.id).
			Log("eventloop: poll failed, terminating loop")
		l.state.TryTransition(StateSleeping, StateTerminating)
		return
	}

	l.state.TryTransition(StateSleeping, StateRunning)

	if n > 0 {
		l.acquire()
		l.poller.Dispatch(n, l.safeExecute)
		l.release()
	}
}

// shutdown runs every remaining task then releases the loop's descriptors.
func (l *Loop) shutdown() {
	// Submit rejects work from here on. A Submit that checked state before
	// this store is tracked by inflight, and its task is drained below.
	l.state.Store(StateTerminated)

	emptyChecks := 0
	const requiredEmptyChecks = 3
	for emptyChecks < requiredEmptyChecks {
		for l.inflight.Load() > 0 {
			runtime.Gosched()
		}

		l.acquire()
		drained := l.processQueue()
		l.release()

		if drained || l.inflight.Load() > 0 {
			emptyChecks = 0
		} else {
			emptyChecks++
			runtime.Gosched()
		}
	}

	l.closeFDs()

	l.logger.Debug().
		Uint64("loop_id", l.id).
		Uint64("ticks", l.tickCount).
		Log("eventloop: terminated")
}

// Submit enqueues task to run on the loop goroutine. Safe to call from any
// goroutine, it never blocks on the loop.
//
// State policy:
//   - StateTerminated: returns ErrLoopTerminated
//   - StateTerminating: accepted, the task runs during shutdown
func (l *Loop) Submit(task func()) error {
	l.inflight.Add(1)
	defer l.inflight.Add(-1)

	if l.state.Load() == StateTerminated {
		return ErrLoopTerminated
	}

	l.queueMu.Lock()
	l.queue = append(l.queue, task)
	l.queueMu.Unlock()

	if l.state.Load() == StateSleeping {
		if l.wakePending.CompareAndSwap(0, 1) {
			if err := l.submitWakeup(); err != nil {
				// expected while closing (EBADF), the task is already queued
				l.wakePending.Store(0)
			}
		}
	}

	return nil
}

// RegisterFD registers a file descriptor for I/O monitoring. The callback
// runs on the loop goroutine.
func (l *Loop) RegisterFD(fd int, events IOEvents, callback IOCallback) error {
	if l.state.Load() == StateTerminated {
		return ErrLoopTerminated
	}
	return l.poller.RegisterFD(fd, events, callback)
}

// UnregisterFD removes a file descriptor from monitoring.
func (l *Loop) UnregisterFD(fd int) error {
	return l.poller.UnregisterFD(fd)
}

// NewEvent returns a new, unset, Event.
func (l *Loop) NewEvent() *Event {
	return NewEvent()
}

// submitWakeup writes to the wake-up eventfd.
func (l *Loop) submitWakeup() error {
	if l.state.Load() == StateTerminated {
		return ErrLoopTerminated
	}
	return writeWakeFd(l.wakeFdWrite)
}

// drainWakeUpPipe drains the wake-up eventfd.
func (l *Loop) drainWakeUpPipe() {
	drainWakeFd(l.wakeFd, l.wakeBuf[:])
	l.wakePending.Store(0)
}

func (l *Loop) acquire() {
	if l.lock != nil {
		l.lock.Acquire()
	}
}

func (l *Loop) release() {
	if l.lock != nil {
		l.lock.Release()
	}
}

// safeExecute executes a function with panic recovery.
func (l *Loop) safeExecute(fn func()) {
	if fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			l.logger.Err().
				Uint64("loop_id", l.id).
				Str("panic", fmt.Sprint(r)).
				Log("eventloop: task panicked")
		}
	}()

	fn()
}

// closeFDs closes file descriptors.
func (l *Loop) closeFDs() {
	_ = l.poller.Close()
	l.closeWakeFds()
}

func (l *Loop) closeWakeFds() {
	_ = closeFD(l.wakeFd)
	if l.wakeFdWrite != l.wakeFd {
		_ = closeFD(l.wakeFdWrite)
	}
}

// isLoopThread checks if we're on the loop goroutine.
func (l *Loop) isLoopThread() bool {
	loopID := l.loopGoroutineID.Load()
	if loopID == 0 {
		return false
	}
	return getGoroutineID() == loopID
}

// getGoroutineID returns the current goroutine's ID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
