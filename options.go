// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package wakerbench

import (
	"errors"
	"time"

	"github.com/joeycumines/logiface"
)

const (
	// DefaultIterations is the number of measured trials per mechanism.
	DefaultIterations = 100

	// DefaultWarmup is the number of discarded trials per mechanism.
	DefaultWarmup = 10

	// DefaultWaitTimeout bounds each trial's wait for its wakeup. It is several
	// orders of magnitude above any expected latency, and exists so a lost
	// signal fails the run instead of hanging it. See WithWaitTimeout.
	DefaultWaitTimeout = 5 * time.Second

	// DefaultSlowThreshold is the sample latency above which a warning is logged.
	DefaultSlowThreshold = 10 * time.Millisecond
)

// --- Harness Options ---

// harnessOptions holds configuration options for Harness creation.
type harnessOptions struct {
	clock         Clock
	logger        *logiface.Logger[logiface.Event]
	progress      func(mechanism string, warmup bool)
	iterations    int
	warmup        int
	triggerDelay  time.Duration
	waitTimeout   time.Duration
	slowThreshold time.Duration
}

// HarnessOption configures a Harness instance.
type HarnessOption interface {
	applyHarness(*harnessOptions) error
}

// harnessOptionImpl implements HarnessOption.
type harnessOptionImpl struct {
	applyHarnessFunc func(*harnessOptions) error
}

func (h *harnessOptionImpl) applyHarness(opts *harnessOptions) error {
	return h.applyHarnessFunc(opts)
}

// WithIterations sets the number of measured trials per mechanism.
func WithIterations(n int) HarnessOption {
	return &harnessOptionImpl{func(opts *harnessOptions) error {
		if n <= 0 {
			return errors.New("wakerbench: iterations must be positive")
		}
		opts.iterations = n
		return nil
	}}
}

// WithWarmup sets the number of discarded trials run before the measured
// pass. Zero disables warmup.
func WithWarmup(n int) HarnessOption {
	return &harnessOptionImpl{func(opts *harnessOptions) error {
		if n < 0 {
			return errors.New("wakerbench: warmup must not be negative")
		}
		opts.warmup = n
		return nil
	}}
}

// WithTriggerDelay sets the delay each worker sleeps before signalling.
func WithTriggerDelay(d time.Duration) HarnessOption {
	return &harnessOptionImpl{func(opts *harnessOptions) error {
		if d < 0 {
			return errors.New("wakerbench: trigger delay must not be negative")
		}
		opts.triggerDelay = d
		return nil
	}}
}

// WithWaitTimeout bounds each trial's wait for its wakeup, failing the run
// with ErrWaitTimeout on expiry. Zero waits indefinitely, meaning a lost
// signal hangs the run until its context is cancelled.
func WithWaitTimeout(d time.Duration) HarnessOption {
	return &harnessOptionImpl{func(opts *harnessOptions) error {
		if d < 0 {
			return errors.New("wakerbench: wait timeout must not be negative")
		}
		opts.waitTimeout = d
		return nil
	}}
}

// WithClock replaces the monotonic clock samples are measured with.
func WithClock(clock Clock) HarnessOption {
	return &harnessOptionImpl{func(opts *harnessOptions) error {
		if clock == nil {
			return errors.New("wakerbench: nil clock")
		}
		opts.clock = clock
		return nil
	}}
}

// WithLogger attaches a structured logger. A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) HarnessOption {
	return &harnessOptionImpl{func(opts *harnessOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithProgress registers fn to be called at the start of each pass of a
// run, from the goroutine driving the harness.
func WithProgress(fn func(mechanism string, warmup bool)) HarnessOption {
	return &harnessOptionImpl{func(opts *harnessOptions) error {
		opts.progress = fn
		return nil
	}}
}

// WithSlowThreshold sets the latency above which a (rate limited) warning is
// logged for a measured sample. Zero disables the warning.
func WithSlowThreshold(d time.Duration) HarnessOption {
	return &harnessOptionImpl{func(opts *harnessOptions) error {
		if d < 0 {
			return errors.New("wakerbench: slow threshold must not be negative")
		}
		opts.slowThreshold = d
		return nil
	}}
}

// resolveHarnessOptions applies HarnessOption instances to harnessOptions.
func resolveHarnessOptions(opts []HarnessOption) (*harnessOptions, error) {
	cfg := &harnessOptions{
		iterations:    DefaultIterations,
		warmup:        DefaultWarmup,
		waitTimeout:   DefaultWaitTimeout,
		slowThreshold: DefaultSlowThreshold,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyHarness(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.clock == nil {
		cfg.clock = NewMonotonicClock()
	}
	return cfg, nil
}

// --- Waker Options ---

// wakerOptions holds configuration options for FdWaker and CallbackWaker.
type wakerOptions struct {
	launcher    *Launcher
	lock        *ExecutionLock
	channelKind ChannelKind
}

// WakerOption configures an FdWaker or CallbackWaker. Options irrelevant to
// a waker type are ignored by it.
type WakerOption interface {
	applyWaker(*wakerOptions) error
}

// wakerOptionImpl implements WakerOption.
type wakerOptionImpl struct {
	applyWakerFunc func(*wakerOptions) error
}

func (w *wakerOptionImpl) applyWaker(opts *wakerOptions) error {
	return w.applyWakerFunc(opts)
}

// WithChannelKind selects the kernel object backing an FdWaker.
func WithChannelKind(kind ChannelKind) WakerOption {
	return &wakerOptionImpl{func(opts *wakerOptions) error {
		if kind != ChannelPipe && kind != ChannelEventfd {
			return errors.New("wakerbench: unknown channel kind")
		}
		opts.channelKind = kind
		return nil
	}}
}

// WithLauncher sets the Launcher used to spawn worker threads.
func WithLauncher(launcher *Launcher) WakerOption {
	return &wakerOptionImpl{func(opts *wakerOptions) error {
		opts.launcher = launcher
		return nil
	}}
}

// WithExecutionLock sets the lock a CallbackWaker acquires to signal.
func WithExecutionLock(lock *ExecutionLock) WakerOption {
	return &wakerOptionImpl{func(opts *wakerOptions) error {
		opts.lock = lock
		return nil
	}}
}

// resolveWakerOptions applies WakerOption instances to wakerOptions.
func resolveWakerOptions(opts []WakerOption) (*wakerOptions, error) {
	cfg := &wakerOptions{
		channelKind: ChannelPipe,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyWaker(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.launcher == nil {
		cfg.launcher = DefaultLauncher
	}
	if cfg.lock == nil {
		cfg.lock = GlobalExecutionLock
	}
	return cfg, nil
}

// --- Launcher Options ---

type launcherOptions struct {
	logger  *logiface.Logger[logiface.Event]
	spawn   func(fn func()) error
	maxLive int
}

// LauncherOption configures a Launcher.
type LauncherOption func(*launcherOptions)

// WithLauncherLogger attaches a structured logger, used for failed triggers.
func WithLauncherLogger(logger *logiface.Logger[logiface.Event]) LauncherOption {
	return func(opts *launcherOptions) {
		opts.logger = logger
	}
}

// WithMaxLive limits the number of concurrently live workers, spawns beyond
// which fail with ErrThreadSpawnFailed. Zero means unlimited.
func WithMaxLive(n int) LauncherOption {
	return func(opts *launcherOptions) {
		opts.maxLive = n
	}
}

// WithSpawnFunc replaces how a worker's function is started, e.g. to inject
// spawn failures. The default is a plain go statement.
func WithSpawnFunc(spawn func(fn func()) error) LauncherOption {
	return func(opts *launcherOptions) {
		opts.spawn = spawn
	}
}

func resolveLauncherOptions(opts []LauncherOption) *launcherOptions {
	cfg := &launcherOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}
