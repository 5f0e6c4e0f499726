package wakerbench

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBenchmarkResult_Relative(t *testing.T) {
	base := &BenchmarkResult{Mechanism: "a", Samples: []time.Duration{10, 30}}
	r := &BenchmarkResult{Mechanism: "b", Samples: []time.Duration{50}}

	assert.InDelta(t, 2.5, r.Relative(base), 1e-9)
	assert.InDelta(t, 1.0, base.Relative(base), 1e-9)
	assert.Zero(t, r.Relative(nil))
	assert.Zero(t, r.Relative(&BenchmarkResult{}))
}

func TestBenchmarkResult_Stats_notCached(t *testing.T) {
	r := &BenchmarkResult{Samples: []time.Duration{1}}
	assert.Equal(t, 1, r.Stats().Count)
	r.Samples = append(r.Samples, 3)
	assert.Equal(t, 2, r.Stats().Count)
	assert.InDelta(t, 2.0, r.Stats().Mean, 1e-9)
}

func TestBurstResult(t *testing.T) {
	r := &BurstResult{Signals: 1000, Wakeups: 10, Units: 1000, Elapsed: 100 * time.Millisecond}
	assert.InDelta(t, 10000.0, r.Throughput(), 1e-6)
	assert.InDelta(t, 100.0, r.Coalescing(), 1e-9)

	assert.Zero(t, (&BurstResult{}).Throughput())
	assert.Zero(t, (&BurstResult{}).Coalescing())
}
