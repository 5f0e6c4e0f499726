package wakerbench

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHarnessOptions_invalid(t *testing.T) {
	for name, opt := range map[string]HarnessOption{
		`zero iterations`:       WithIterations(0),
		`negative warmup`:       WithWarmup(-1),
		`negative delay`:        WithTriggerDelay(-time.Nanosecond),
		`negative wait timeout`: WithWaitTimeout(-time.Second),
		`nil clock`:             WithClock(nil),
		`negative threshold`:    WithSlowThreshold(-1),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := resolveHarnessOptions([]HarnessOption{opt})
			assert.Error(t, err)
		})
	}
}

func TestHarnessOptions_resolve(t *testing.T) {
	clock := ClockFunc(func() time.Duration { return 0 })
	cfg, err := resolveHarnessOptions([]HarnessOption{
		nil,
		WithIterations(3),
		WithWarmup(0),
		WithTriggerDelay(time.Millisecond),
		WithWaitTimeout(0),
		WithClock(clock),
		WithSlowThreshold(0),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.iterations)
	assert.Equal(t, 0, cfg.warmup)
	assert.Equal(t, time.Millisecond, cfg.triggerDelay)
	assert.Zero(t, cfg.waitTimeout)
	assert.Zero(t, cfg.slowThreshold)
	assert.NotNil(t, cfg.clock)
}

func TestWakerOptions(t *testing.T) {
	cfg, err := resolveWakerOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, ChannelPipe, cfg.channelKind)
	assert.Same(t, DefaultLauncher, cfg.launcher)
	assert.Same(t, GlobalExecutionLock, cfg.lock)

	launcher := NewLauncher()
	lock := NewExecutionLock("x")
	cfg, err = resolveWakerOptions([]WakerOption{
		WithChannelKind(ChannelEventfd),
		WithLauncher(launcher),
		WithExecutionLock(lock),
		nil,
	})
	require.NoError(t, err)
	assert.Equal(t, ChannelEventfd, cfg.channelKind)
	assert.Same(t, launcher, cfg.launcher)
	assert.Same(t, lock, cfg.lock)

	_, err = resolveWakerOptions([]WakerOption{WithChannelKind(ChannelKind(7))})
	assert.Error(t, err)
}

func TestMonotonicClock(t *testing.T) {
	c := NewMonotonicClock()
	a := c.Now()
	time.Sleep(time.Millisecond)
	b := c.Now()
	assert.GreaterOrEqual(t, a, time.Duration(0))
	assert.GreaterOrEqual(t, b-a, time.Millisecond)
}
