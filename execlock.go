package wakerbench

import (
	"sync"
	"sync/atomic"
	"time"
)

// GlobalExecutionLock is the process-wide execution lock. CallbackWaker
// signals acquire it by default, and the scheduler holds it while running
// callbacks when configured with loop.WithExecutionLock.
var GlobalExecutionLock = NewExecutionLock("global")

// ExecutionLock is a named mutual exclusion object with explicit acquire and
// release, instrumented so its contention cost can be observed.
type ExecutionLock struct {
	name         string
	mu           sync.Mutex
	acquisitions atomic.Uint64
	contended    atomic.Uint64
	waitNanos    atomic.Int64
}

// LockStats is a snapshot of an ExecutionLock's counters.
type LockStats struct {
	Name         string
	Acquisitions uint64
	// Contended counts acquisitions that had to block.
	Contended uint64
	// Wait is the total time spent blocked in Acquire.
	Wait time.Duration
}

// NewExecutionLock returns an unlocked ExecutionLock.
func NewExecutionLock(name string) *ExecutionLock {
	return &ExecutionLock{name: name}
}

// Name returns the name the lock was created with.
func (l *ExecutionLock) Name() string {
	return l.name
}

// Acquire blocks until the lock is held by the caller.
func (l *ExecutionLock) Acquire() {
	if l.mu.TryLock() {
		l.acquisitions.Add(1)
		return
	}
	start := time.Now()
	l.mu.Lock()
	l.waitNanos.Add(int64(time.Since(start)))
	l.contended.Add(1)
	l.acquisitions.Add(1)
}

// TryAcquire acquires the lock only if it is free.
func (l *ExecutionLock) TryAcquire() bool {
	if !l.mu.TryLock() {
		return false
	}
	l.acquisitions.Add(1)
	return true
}

// Release releases the lock. Releasing an unheld lock is a fatal error.
func (l *ExecutionLock) Release() {
	l.mu.Unlock()
}

// Stats returns a snapshot of the lock's counters.
func (l *ExecutionLock) Stats() LockStats {
	return LockStats{
		Name:         l.name,
		Acquisitions: l.acquisitions.Load(),
		Contended:    l.contended.Load(),
		Wait:         time.Duration(l.waitNanos.Load()),
	}
}
