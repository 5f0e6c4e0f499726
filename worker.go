package wakerbench

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// DefaultLauncher is used by wakers not configured WithLauncher.
var DefaultLauncher = NewLauncher()

// Launcher spawns one-shot worker threads. Each worker runs on a goroutine
// locked to its own OS thread, which is never unlocked, so the thread exits
// with the goroutine rather than returning to the runtime's pool.
//
// Workers are not joined. Live and Spawned exist to audit for leaks.
type Launcher struct {
	logger  *logiface.Logger[logiface.Event]
	spawn   func(fn func()) error
	maxLive int64
	live    atomic.Int64
	spawned atomic.Uint64
}

// NewLauncher constructs a Launcher.
func NewLauncher(opts ...LauncherOption) *Launcher {
	cfg := resolveLauncherOptions(opts)
	x := &Launcher{
		logger:  cfg.logger,
		spawn:   cfg.spawn,
		maxLive: int64(cfg.maxLive),
	}
	if x.spawn == nil {
		x.spawn = func(fn func()) error {
			go fn()
			return nil
		}
	}
	return x
}

// Live returns the number of workers that have been spawned but not exited.
func (x *Launcher) Live() int {
	return int(x.live.Load())
}

// Spawned returns the total number of workers successfully spawned.
func (x *Launcher) Spawned() uint64 {
	return x.spawned.Load()
}

// Spawn starts a worker which sleeps for delay, if positive, then calls
// trigger exactly once. It returns without waiting for the worker. Failures
// to start wrap ErrThreadSpawnFailed.
func (x *Launcher) Spawn(delay time.Duration, trigger func() error) (*Worker, error) {
	if trigger == nil {
		return nil, fmt.Errorf("%w: nil trigger", ErrThreadSpawnFailed)
	}

	if n := x.live.Add(1); x.maxLive > 0 && n > x.maxLive {
		x.live.Add(-1)
		return nil, fmt.Errorf("%w: %d workers already live", ErrThreadSpawnFailed, x.maxLive)
	}

	w := &Worker{
		delay: delay,
		done:  make(chan struct{}),
	}

	if err := x.spawn(func() {
		runtime.LockOSThread()
		defer x.live.Add(-1)
		w.run(trigger)
		if err := w.Err(); err != nil {
			x.logger.Err().
				Err(err).
				Dur("delay", delay).
				Log("worker trigger failed")
		}
	}); err != nil {
		x.live.Add(-1)
		return nil, fmt.Errorf("%w: %w", ErrThreadSpawnFailed, err)
	}

	x.spawned.Add(1)
	return w, nil
}

// Worker is the handle of a single spawned worker thread.
type Worker struct {
	err       error
	done      chan struct{}
	onFailure []func(error)
	mu        sync.Mutex
	delay     time.Duration
}

// Done is closed once the trigger has returned.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Err returns the trigger's error, valid once Done is closed.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// OnFailure registers fn to be called, on the worker's thread, if the
// trigger fails. If the worker already failed, fn is called immediately.
func (w *Worker) OnFailure(fn func(error)) {
	w.mu.Lock()
	select {
	case <-w.done:
		err := w.err
		w.mu.Unlock()
		if err != nil {
			fn(err)
		}
		return
	default:
	}
	w.onFailure = append(w.onFailure, fn)
	w.mu.Unlock()
}

func (w *Worker) run(trigger func() error) {
	var (
		err       error
		completed bool
	)
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		} else if !completed {
			err = ErrWorkerExited
		}
		w.finish(err)
	}()

	if w.delay > 0 {
		time.Sleep(w.delay)
	}
	err = trigger()
	completed = true
}

func (w *Worker) finish(err error) {
	w.mu.Lock()
	w.err = err
	fns := w.onFailure
	w.onFailure = nil
	close(w.done)
	w.mu.Unlock()

	if err != nil {
		for _, fn := range fns {
			fn(err)
		}
	}
}
