//go:build linux

package wakerbench

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFdWaker_stateMachine(t *testing.T) {
	s := newMockScheduler(t)

	w, err := NewFdWaker()
	require.NoError(t, err)
	assert.Equal(t, WakerIdle, w.State())
	assert.Equal(t, ChannelPipe, w.Kind())

	var woken []int
	require.NoError(t, w.Arm(s, func(units int) { woken = append(woken, units) }))
	assert.Equal(t, WakerArmed, w.State())
	assert.ErrorIs(t, w.Arm(s, nil), ErrWakerState)

	cb := s.readable(w.ReadFD())
	require.NotNil(t, cb)

	// spurious readability
	cb()
	assert.Empty(t, woken)
	assert.Equal(t, WakerArmed, w.State())

	require.NoError(t, w.Signal())
	require.NoError(t, w.Signal())
	cb()
	assert.Equal(t, []int{2}, woken)
	assert.Equal(t, WakerArmed, w.State())

	require.NoError(t, w.Disarm())
	assert.Equal(t, WakerIdle, w.State())
	assert.Nil(t, s.readable(w.ReadFD()))
	assert.ErrorIs(t, w.Disarm(), ErrWakerState)

	// a callback already dispatched after disarm is ignored
	require.NoError(t, w.Signal())
	cb()
	assert.Equal(t, []int{2}, woken)
	units, err := w.Drain()
	require.NoError(t, err)
	assert.Equal(t, 1, units)

	// re-armable
	require.NoError(t, w.Arm(s, nil))

	require.NoError(t, w.Close())
	assert.Equal(t, WakerClosed, w.State())
	assert.Nil(t, s.readable(w.ReadFD()))
	assert.ErrorIs(t, w.Signal(), ErrChannelClosed)
	_, err = w.Drain()
	assert.ErrorIs(t, err, ErrChannelClosed)
	assert.ErrorIs(t, w.Close(), ErrChannelClosed)
	assert.ErrorIs(t, w.Arm(s, nil), ErrWakerState)
}

func TestFdWaker_Arm_invalidHandle(t *testing.T) {
	w, err := NewFdWaker(WithChannelKind(ChannelEventfd))
	require.NoError(t, err)
	defer w.Close()

	assert.ErrorIs(t, w.Arm(nil, nil), ErrInvalidHandle)

	s := newMockScheduler(t)
	s.closed.Store(true)
	assert.ErrorIs(t, w.Arm(s, nil), ErrInvalidHandle)
	assert.Equal(t, WakerIdle, w.State())
}

func TestFdWaker_Drain_idempotent(t *testing.T) {
	for _, kind := range []ChannelKind{ChannelPipe, ChannelEventfd} {
		t.Run(kind.String(), func(t *testing.T) {
			w, err := NewFdWaker(WithChannelKind(kind))
			require.NoError(t, err)
			defer w.Close()

			require.NoError(t, w.Signal())
			units, err := w.Drain()
			require.NoError(t, err)
			assert.Equal(t, 1, units)

			units, err = w.Drain()
			require.NoError(t, err)
			assert.Zero(t, units)
		})
	}
}

func TestFdWaker_SignalFromForeignThread(t *testing.T) {
	launcher := NewLauncher()
	w, err := NewFdWaker(WithLauncher(launcher))
	require.NoError(t, err)
	defer w.Close()

	start := time.Now()
	worker, err := w.SignalFromForeignThread(20 * time.Millisecond)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 20*time.Millisecond, "must not wait for the worker")

	select {
	case <-worker.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not finish")
	}
	require.NoError(t, worker.Err())
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	units, err := w.Drain()
	require.NoError(t, err)
	assert.Equal(t, 1, units)
	assert.Equal(t, uint64(1), launcher.Spawned())
}

func TestFdWaker_SignalBurstFromForeignThread(t *testing.T) {
	w, err := NewFdWaker(WithChannelKind(ChannelEventfd))
	require.NoError(t, err)
	defer w.Close()

	worker, err := w.SignalBurstFromForeignThread(500)
	require.NoError(t, err)
	<-worker.Done()
	require.NoError(t, worker.Err())

	units, err := w.Drain()
	require.NoError(t, err)
	assert.Equal(t, 500, units)
}

func TestFdWaker_signalAfterCloseFailsWorker(t *testing.T) {
	w, err := NewFdWaker()
	require.NoError(t, err)
	require.NoError(t, w.Close())

	worker, err := w.SignalFromForeignThread(0)
	require.NoError(t, err)
	<-worker.Done()
	assert.ErrorIs(t, worker.Err(), ErrChannelClosed)
}

func TestWakerState_String(t *testing.T) {
	assert.Equal(t, "Idle", WakerIdle.String())
	assert.Equal(t, "Armed", WakerArmed.String())
	assert.Equal(t, "Signaled", WakerSignaled.String())
	assert.Equal(t, "Closed", WakerClosed.String())
	assert.Equal(t, "Unknown", WakerState(9).String())
}
