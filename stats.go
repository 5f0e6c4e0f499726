package wakerbench

import (
	"math"
	"slices"
	"time"
)

// p99MinSamples is the sample count below which P99 falls back to Max.
const p99MinSamples = 100

// Stats are descriptive statistics over latency samples. Mean, Median and
// Stdev are in nanoseconds.
type Stats struct {
	Count  int
	Mean   float64
	Median float64
	// Stdev is the sample standard deviation, 0 for fewer than 2 samples.
	Stdev float64
	Min   time.Duration
	Max   time.Duration
	// P99 is the 99th percentile if HasP99, otherwise Max.
	P99    time.Duration
	HasP99 bool
}

// Summarize computes Stats over samples, which it does not modify. An empty
// input yields the zero value.
func Summarize(samples []time.Duration) Stats {
	n := len(samples)
	if n == 0 {
		return Stats{}
	}

	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	var sum float64
	for _, v := range sorted {
		sum += float64(v)
	}
	mean := sum / float64(n)

	var stdev float64
	if n > 1 {
		var ss float64
		for _, v := range sorted {
			d := float64(v) - mean
			ss += d * d
		}
		stdev = math.Sqrt(ss / float64(n-1))
	}

	var median float64
	if n%2 == 1 {
		median = float64(sorted[n/2])
	} else {
		median = (float64(sorted[n/2-1]) + float64(sorted[n/2])) / 2
	}

	s := Stats{
		Count:  n,
		Mean:   mean,
		Median: median,
		Stdev:  stdev,
		Min:    sorted[0],
		Max:    sorted[n-1],
		P99:    sorted[n-1],
	}
	if n >= p99MinSamples {
		s.P99 = sorted[int(float64(n)*0.99)]
		s.HasP99 = true
	}
	return s
}
