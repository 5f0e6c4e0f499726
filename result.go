package wakerbench

import (
	"time"
)

// BenchmarkResult is the measured samples of one mechanism, in iteration
// order.
type BenchmarkResult struct {
	Mechanism string
	Samples   []time.Duration
}

// Stats summarizes the samples. It is recomputed on every call.
func (r *BenchmarkResult) Stats() Stats {
	return Summarize(r.Samples)
}

// Relative returns the ratio of r's mean to base's mean, or 0 if either
// mean is zero.
func (r *BenchmarkResult) Relative(base *BenchmarkResult) float64 {
	if base == nil {
		return 0
	}
	a, b := r.Stats().Mean, base.Stats().Mean
	if a == 0 || b == 0 {
		return 0
	}
	return a / b
}

// BurstResult is the outcome of Harness.Burst.
type BurstResult struct {
	Mechanism string
	// Signals is the number of signals sent.
	Signals int
	// Wakeups is the number of times the scheduler observed the mechanism.
	Wakeups int
	// Units is the number of signals accounted for by the wakeups, at least
	// Signals. Wakeups below Units indicates coalescing.
	Units   int
	Elapsed time.Duration
}

// Throughput returns signals per second.
func (r *BurstResult) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Signals) / r.Elapsed.Seconds()
}

// Coalescing returns the mean number of signals observed per wakeup.
func (r *BurstResult) Coalescing() float64 {
	if r.Wakeups == 0 {
		return 0
	}
	return float64(r.Units) / float64(r.Wakeups)
}
