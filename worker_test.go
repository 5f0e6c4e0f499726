package wakerbench

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, w *Worker) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not finish")
	}
}

func TestLauncher_Spawn(t *testing.T) {
	x := NewLauncher()

	var calls atomic.Int32
	w, err := x.Spawn(5*time.Millisecond, func() error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	waitDone(t, w)
	require.NoError(t, w.Err())
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(1), x.Spawned())

	require.Eventually(t, func() bool { return x.Live() == 0 }, time.Second, time.Millisecond)
}

func TestLauncher_Spawn_nilTrigger(t *testing.T) {
	_, err := NewLauncher().Spawn(0, nil)
	assert.ErrorIs(t, err, ErrThreadSpawnFailed)
}

func TestLauncher_Spawn_spawnFuncError(t *testing.T) {
	cause := errors.New("no more threads")
	x := NewLauncher(WithSpawnFunc(func(func()) error { return cause }))

	_, err := x.Spawn(0, func() error { return nil })
	assert.ErrorIs(t, err, ErrThreadSpawnFailed)
	assert.ErrorIs(t, err, cause)
	assert.Zero(t, x.Live())
	assert.Zero(t, x.Spawned())
}

func TestLauncher_Spawn_maxLive(t *testing.T) {
	x := NewLauncher(WithMaxLive(1))

	release := make(chan struct{})
	w, err := x.Spawn(0, func() error {
		<-release
		return nil
	})
	require.NoError(t, err)

	_, err = x.Spawn(0, func() error { return nil })
	assert.ErrorIs(t, err, ErrThreadSpawnFailed)
	assert.Equal(t, 1, x.Live())

	close(release)
	waitDone(t, w)
	require.Eventually(t, func() bool { return x.Live() == 0 }, time.Second, time.Millisecond)

	w, err = x.Spawn(0, func() error { return nil })
	require.NoError(t, err)
	waitDone(t, w)
}

func TestWorker_failure(t *testing.T) {
	x := NewLauncher()
	cause := errors.New("signal failed")

	failed := make(chan error, 1)
	release := make(chan struct{})
	w, err := x.Spawn(0, func() error {
		<-release
		return cause
	})
	require.NoError(t, err)
	w.OnFailure(func(err error) { failed <- err })
	close(release)

	waitDone(t, w)
	assert.ErrorIs(t, w.Err(), cause)
	assert.ErrorIs(t, <-failed, cause)

	// registered after the fact
	var late error
	w.OnFailure(func(err error) { late = err })
	assert.ErrorIs(t, late, cause)
}

func TestWorker_successDoesNotCallOnFailure(t *testing.T) {
	w, err := NewLauncher().Spawn(0, func() error { return nil })
	require.NoError(t, err)
	waitDone(t, w)
	w.OnFailure(func(error) { t.Error("unexpected call") })
}

func TestWorker_panic(t *testing.T) {
	w, err := NewLauncher().Spawn(0, func() error { panic("boom") })
	require.NoError(t, err)
	waitDone(t, w)

	var pe *PanicError
	require.ErrorAs(t, w.Err(), &pe)
	assert.Equal(t, "boom", pe.Value)
}

func TestWorker_goexit(t *testing.T) {
	x := NewLauncher()
	w, err := x.Spawn(0, func() error {
		runtime.Goexit()
		return nil
	})
	require.NoError(t, err)
	waitDone(t, w)
	assert.ErrorIs(t, w.Err(), ErrWorkerExited)
	require.Eventually(t, func() bool { return x.Live() == 0 }, time.Second, time.Millisecond)
}
