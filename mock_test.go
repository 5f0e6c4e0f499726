package wakerbench

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/go-wakerbench/internal/loop"
)

// mockScheduler runs submitted callbacks, in order, on a single goroutine.
// Readability callbacks are captured, to be invoked by the test.
type mockScheduler struct {
	tasks     chan func()
	stop      chan struct{}
	mu        sync.Mutex
	readables map[int]func()
	closed    atomic.Bool
	submitted atomic.Int64
	// resumeDelay stalls every Event waiter after it observes the set
	resumeDelay time.Duration
}

var _ Scheduler = (*mockScheduler)(nil)

func newMockScheduler(t *testing.T) *mockScheduler {
	t.Helper()
	s := &mockScheduler{
		tasks:     make(chan func(), 1024),
		stop:      make(chan struct{}),
		readables: make(map[int]func()),
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-s.stop:
				return
			case fn := <-s.tasks:
				fn()
			}
		}
	}()
	t.Cleanup(func() {
		close(s.stop)
		<-done
	})
	return s
}

func (s *mockScheduler) RegisterReadable(fd int, cb func()) error {
	if s.closed.Load() {
		return ErrInvalidHandle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.readables[fd]; ok {
		return errors.New("already registered")
	}
	s.readables[fd] = cb
	return nil
}

func (s *mockScheduler) Deregister(fd int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.readables[fd]; !ok {
		return errors.New("not registered")
	}
	delete(s.readables, fd)
	return nil
}

// readable returns the callback registered for fd, or nil.
func (s *mockScheduler) readable(fd int) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readables[fd]
}

func (s *mockScheduler) Submit(cb func()) error {
	if s.closed.Load() {
		return ErrInvalidHandle
	}
	s.submitted.Add(1)
	s.tasks <- cb
	return nil
}

func (s *mockScheduler) NewEvent() Event {
	if s.resumeDelay > 0 {
		return slowResumeEvent{Event: loop.NewEvent(), delay: s.resumeDelay}
	}
	return loop.NewEvent()
}

// slowResumeEvent models a waiter which is slow to be rescheduled.
type slowResumeEvent struct {
	Event
	delay time.Duration
}

func (e slowResumeEvent) Wait(ctx context.Context) error {
	if err := e.Event.Wait(ctx); err != nil {
		return err
	}
	time.Sleep(e.delay)
	return nil
}

func (s *mockScheduler) Closed() bool {
	return s.closed.Load()
}

// mockMechanism wakes the scheduler by submitting directly, from the
// triggering goroutine, unless configured otherwise.
type mockMechanism struct {
	name  string
	sched Scheduler
	wake  func(units int)
	// onTrigger, if set, replaces the default submit, i is the trigger count
	onTrigger func(i int, fail func(err error)) error
	openErr   error
	triggers  int
	opens     int
	closes    int
}

var _ Mechanism = (*mockMechanism)(nil)

func (m *mockMechanism) Name() string {
	if m.name == "" {
		return "mock"
	}
	return m.name
}

func (m *mockMechanism) Open(s Scheduler, wake func(units int)) error {
	if m.openErr != nil {
		return m.openErr
	}
	m.opens++
	m.sched = s
	m.wake = wake
	return nil
}

func (m *mockMechanism) Trigger(_ context.Context, delay time.Duration, fail func(err error)) error {
	i := m.triggers
	m.triggers++
	if m.onTrigger != nil {
		return m.onTrigger(i, fail)
	}
	return m.sched.Submit(func() { m.wake(1) })
}

func (m *mockMechanism) Close() error {
	m.closes++
	return nil
}

// stepClock advances by a growing step on every second read, so the n-th
// sample (from zero) of a harness is exactly (n+1)*unit.
type stepClock struct {
	mu    sync.Mutex
	now   time.Duration
	reads int
	unit  time.Duration
}

func (c *stepClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reads%2 == 1 {
		c.now += time.Duration(c.reads/2+1) * c.unit
	}
	c.reads++
	return c.now
}
