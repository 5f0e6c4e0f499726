package loop

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEvent_setClear(t *testing.T) {
	e := NewEvent()
	if e.IsSet() {
		t.Fatal("new event is set")
	}

	e.Set()
	e.Set()
	if !e.IsSet() {
		t.Fatal("expected set")
	}
	if err := e.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	e.Clear()
	e.Clear()
	if e.IsSet() {
		t.Fatal("expected clear")
	}
}

func TestEvent_Wait_cause(t *testing.T) {
	e := NewEvent()
	e.Set()
	e.Clear()

	cause := errors.New("some cause")
	ctx, cancel := context.WithTimeoutCause(context.Background(), 10*time.Millisecond, cause)
	defer cancel()

	if err := e.Wait(ctx); err != cause {
		t.Fatalf("expected cause, got %v", err)
	}
}

func TestEvent_Wait_releasedBySet(t *testing.T) {
	e := NewEvent()
	result := make(chan error, 1)
	go func() { result <- e.Wait(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	e.Set()

	select {
	case err := <-result:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not released")
	}
}

func TestEvent_Wait_setBeforeClearNotObserved(t *testing.T) {
	e := NewEvent()
	e.Set()
	e.Clear()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
