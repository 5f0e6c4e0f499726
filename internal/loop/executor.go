package loop

import (
	"context"
	"errors"
	"sync"
)

// Executor is the loop's generic thread-to-scheduler bridge: functions run on
// a single dedicated worker goroutine, and each completion is delivered back
// onto the loop via Submit.
type Executor struct {
	loop   *Loop
	tasks  chan executorTask
	closed chan struct{}
	done   chan struct{}
	once   sync.Once
}

type executorTask struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done func(err error)
}

// NewExecutor starts a single-worker executor bound to the loop.
func (l *Loop) NewExecutor() (*Executor, error) {
	if !l.state.CanAcceptWork() {
		return nil, ErrLoopTerminated
	}
	e := &Executor{
		loop:   l,
		tasks:  make(chan executorTask),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go e.worker()
	return e, nil
}

// Run hands fn to the worker, blocking only until the worker accepts it.
// done, if non-nil, is called exactly once with the outcome of fn, on the
// loop goroutine. If the loop has terminated by then, done is instead called
// on the worker goroutine, with the submit error joined in.
//
// It ensures:
//   - Panics in fn are delivered as PanicError.
//   - runtime.Goexit in fn is delivered as ErrGoexit, and the worker is replaced.
//   - A ctx already done when the worker picks fn up skips fn.
func (e *Executor) Run(ctx context.Context, fn func(ctx context.Context) error, done func(err error)) error {
	select {
	case <-e.closed:
		return ErrExecutorClosed
	default:
	}
	select {
	case e.tasks <- executorTask{ctx: ctx, fn: fn, done: done}:
		return nil
	case <-e.closed:
		return ErrExecutorClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker, waiting for any function it is running.
func (e *Executor) Close() error {
	e.once.Do(func() {
		close(e.closed)
	})
	<-e.done
	return nil
}

func (e *Executor) worker() {
	goexit := true
	defer func() {
		if goexit {
			go e.worker()
			return
		}
		close(e.done)
	}()
	for {
		select {
		case <-e.closed:
			goexit = false
			return
		case t := <-e.tasks:
			e.execute(t)
		}
	}
}

func (e *Executor) execute(t executorTask) {
	var (
		err       error
		completed bool
	)
	defer func() {
		if r := recover(); r != nil {
			err = PanicError{Value: r}
		} else if !completed {
			err = ErrGoexit
		}
		e.complete(t.done, err)
	}()

	if err = t.ctx.Err(); err != nil {
		completed = true
		return
	}
	err = t.fn(t.ctx)
	completed = true
}

func (e *Executor) complete(done func(error), err error) {
	if done == nil {
		return
	}
	if submitErr := e.loop.Submit(func() { done(err) }); submitErr != nil {
		done(errors.Join(err, submitErr))
	}
}
