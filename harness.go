package wakerbench

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	catrate "github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// Harness measures wakeup latency. For each trial it clears an Event, reads
// the clock, triggers the mechanism, then waits for the scheduler to set the
// Event. The end of the trial is read on the scheduler goroutine, inside the
// wakeup callback, so the cost of resuming the calling goroutine is not
// charged to the mechanism.
//
// The wait is the only point at which the calling goroutine suspends. A
// Harness must not be used concurrently, and must not be driven from the
// scheduler goroutine.
type Harness struct {
	sched         Scheduler
	clock         Clock
	logger        *logiface.Logger[logiface.Event]
	progress      func(mechanism string, warmup bool)
	slowLimiter   *catrate.Limiter
	iterations    int
	warmup        int
	triggerDelay  time.Duration
	waitTimeout   time.Duration
	slowThreshold time.Duration
}

// NewHarness returns a Harness driving s.
func NewHarness(s Scheduler, opts ...HarnessOption) (*Harness, error) {
	if schedulerClosed(s) {
		return nil, ErrInvalidHandle
	}
	cfg, err := resolveHarnessOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Harness{
		sched:         s,
		clock:         cfg.clock,
		logger:        cfg.logger,
		progress:      cfg.progress,
		iterations:    cfg.iterations,
		warmup:        cfg.warmup,
		triggerDelay:  cfg.triggerDelay,
		waitTimeout:   cfg.waitTimeout,
		slowThreshold: cfg.slowThreshold,
		slowLimiter: catrate.NewLimiter(map[time.Duration]int{
			time.Second: 1,
			time.Minute: 10,
		}),
	}, nil
}

// Iterations returns the number of measured trials per mechanism.
func (h *Harness) Iterations() int {
	return h.iterations
}

// Warmup returns the number of discarded trials per mechanism.
func (h *Harness) Warmup() int {
	return h.warmup
}

// Run performs the warmup pass, discarding its samples, then the measured
// pass. Any failure aborts the run, no partial result is returned.
func (h *Harness) Run(ctx context.Context, m Mechanism) (*BenchmarkResult, error) {
	if err := h.runWarmup(ctx, m); err != nil {
		return nil, err
	}
	return h.runMeasured(ctx, m)
}

// RunAll performs the warmup pass of every mechanism, then the measured
// pass of each, in order. The first failure aborts every remaining run.
func (h *Harness) RunAll(ctx context.Context, ms ...Mechanism) ([]*BenchmarkResult, error) {
	for _, m := range ms {
		if err := h.runWarmup(ctx, m); err != nil {
			return nil, err
		}
	}
	results := make([]*BenchmarkResult, 0, len(ms))
	for _, m := range ms {
		result, err := h.runMeasured(ctx, m)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// Measure runs n measured trials, returning the samples in trial order.
func (h *Harness) Measure(ctx context.Context, m Mechanism, n int) ([]time.Duration, error) {
	return h.measure(ctx, m, n, false)
}

func (h *Harness) runWarmup(ctx context.Context, m Mechanism) error {
	if h.warmup == 0 {
		return nil
	}
	h.reportProgress(m, true)
	h.logger.Debug().
		Str("mechanism", m.Name()).
		Int("iterations", h.warmup).
		Log("warmup started")
	_, err := h.measure(ctx, m, h.warmup, true)
	return err
}

func (h *Harness) runMeasured(ctx context.Context, m Mechanism) (*BenchmarkResult, error) {
	h.reportProgress(m, false)
	h.logger.Debug().
		Str("mechanism", m.Name()).
		Int("iterations", h.iterations).
		Log("benchmark started")
	samples, err := h.measure(ctx, m, h.iterations, false)
	if err != nil {
		return nil, err
	}
	result := &BenchmarkResult{Mechanism: m.Name(), Samples: samples}
	if b := h.logger.Debug(); b.Enabled() {
		stats := result.Stats()
		b.Str("mechanism", m.Name()).
			Int("samples", stats.Count).
			Dur("mean", time.Duration(stats.Mean)).
			Dur("max", stats.Max).
			Log("benchmark finished")
	}
	return result, nil
}

func (h *Harness) measure(ctx context.Context, m Mechanism, n int, warmup bool) (samples []time.Duration, err error) {
	if n <= 0 {
		return nil, fmt.Errorf("wakerbench: invalid trial count: %d", n)
	}

	stamp := &wakeStamp{clock: h.clock, event: h.sched.NewEvent()}

	if err := m.Open(h.sched, func(int) { stamp.fire() }); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrMechanismOpen, m.Name(), err)
		h.logAbort(m, err)
		return nil, err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			samples = nil
			err = errors.Join(err, fmt.Errorf("wakerbench: %s: close: %w", m.Name(), closeErr))
		}
	}()

	samples = make([]time.Duration, 0, n)
	for i := 0; i < n; i++ {
		sample, err := h.trial(ctx, m, stamp)
		if err != nil {
			err = &TrialError{
				Err:       err,
				Mechanism: m.Name(),
				Iteration: i,
				Warmup:    warmup,
			}
			h.logAbort(m, err)
			return nil, err
		}
		if !warmup {
			h.checkSlow(m, i, sample)
		}
		samples = append(samples, sample)
	}

	return samples, nil
}

func (h *Harness) trial(ctx context.Context, m Mechanism, stamp *wakeStamp) (time.Duration, error) {
	// cleared before start is read, a stale set cannot satisfy this wait
	stamp.event.Clear()
	stamp.armed.Store(true)
	defer stamp.armed.Store(false)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if h.waitTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeoutCause(ctx, h.waitTimeout, ErrWaitTimeout)
		defer cancelTimeout()
	}

	start := h.clock.Now()

	if err := m.Trigger(ctx, h.triggerDelay, cancel); err != nil {
		return 0, err
	}

	if err := stamp.event.Wait(ctx); err != nil {
		return 0, err
	}

	sample := stamp.end() - start
	if sample <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSample, sample)
	}
	return sample, nil
}

// Burst sends count signals from a single foreign thread, and measures the
// time until the scheduler has observed all of them. It performs no warmup.
func (h *Harness) Burst(ctx context.Context, m BurstMechanism, count int) (*BurstResult, error) {
	if count <= 0 {
		return nil, fmt.Errorf("wakerbench: invalid burst count: %d", count)
	}

	var (
		stamp   = &wakeStamp{clock: h.clock, event: h.sched.NewEvent()}
		wakeups atomic.Int64
		units   atomic.Int64
	)

	if err := m.Open(h.sched, func(n int) {
		wakeups.Add(1)
		if units.Add(int64(n)) >= int64(count) {
			stamp.fire()
		}
	}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMechanismOpen, m.Name(), err)
	}

	result, err := h.burst(ctx, m, stamp, count)
	if closeErr := m.Close(); closeErr != nil {
		return nil, errors.Join(err, fmt.Errorf("wakerbench: %s: close: %w", m.Name(), closeErr))
	}
	if err != nil {
		err = &TrialError{Err: err, Mechanism: m.Name()}
		h.logAbort(m, err)
		return nil, err
	}

	result.Wakeups = int(wakeups.Load())
	result.Units = int(units.Load())

	h.logger.Debug().
		Str("mechanism", m.Name()).
		Int("signals", count).
		Int("wakeups", result.Wakeups).
		Dur("elapsed", result.Elapsed).
		Log("burst finished")

	return result, nil
}

func (h *Harness) burst(ctx context.Context, m BurstMechanism, stamp *wakeStamp, count int) (*BurstResult, error) {
	stamp.armed.Store(true)
	defer stamp.armed.Store(false)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if h.waitTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeoutCause(ctx, h.waitTimeout, ErrWaitTimeout)
		defer cancelTimeout()
	}

	start := h.clock.Now()

	if err := m.TriggerBurst(ctx, count, cancel); err != nil {
		return nil, err
	}

	if err := stamp.event.Wait(ctx); err != nil {
		return nil, err
	}

	elapsed := stamp.end() - start
	if elapsed <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSample, elapsed)
	}

	return &BurstResult{
		Mechanism: m.Name(),
		Signals:   count,
		Elapsed:   elapsed,
	}, nil
}

// wakeStamp reads the clock on the goroutine delivering the first wakeup
// after it is armed, then sets the event.
type wakeStamp struct {
	clock Clock
	event Event
	armed atomic.Bool
	nanos atomic.Int64
}

func (x *wakeStamp) fire() {
	if !x.armed.CompareAndSwap(true, false) {
		return
	}
	x.nanos.Store(int64(x.clock.Now()))
	x.event.Set()
}

// end is valid only once the event has been observed set.
func (x *wakeStamp) end() time.Duration {
	return time.Duration(x.nanos.Load())
}

func (h *Harness) checkSlow(m Mechanism, iteration int, sample time.Duration) {
	if h.slowThreshold <= 0 || sample <= h.slowThreshold {
		return
	}
	if _, ok := h.slowLimiter.Allow(m.Name()); !ok {
		return
	}
	h.logger.Warning().
		Str("mechanism", m.Name()).
		Int("iteration", iteration).
		Dur("sample", sample).
		Dur("threshold", h.slowThreshold).
		Log("slow wakeup")
}

func (h *Harness) logAbort(m Mechanism, err error) {
	h.logger.Err().
		Err(err).
		Str("mechanism", m.Name()).
		Log("benchmark aborted")
}

func (h *Harness) reportProgress(m Mechanism, warmup bool) {
	if h.progress != nil {
		h.progress(m.Name(), warmup)
	}
}
