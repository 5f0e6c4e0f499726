package loop

import (
	"testing"
)

func TestFastState_transitions(t *testing.T) {
	s := NewFastState()
	if s.Load() != StateAwake {
		t.Fatalf("expected Awake, got %s", s.Load())
	}
	if !s.CanAcceptWork() || s.IsTerminal() {
		t.Fatal("Awake must accept work")
	}

	if s.TryTransition(StateRunning, StateSleeping) {
		t.Fatal("transition from the wrong state succeeded")
	}
	if !s.TryTransition(StateAwake, StateRunning) {
		t.Fatal("Awake -> Running failed")
	}
	if !s.TryTransition(StateRunning, StateTerminating) {
		t.Fatal("Running -> Terminating failed")
	}
	if s.CanAcceptWork() {
		t.Fatal("Terminating must not accept work")
	}

	s.Store(StateTerminated)
	if !s.IsTerminal() {
		t.Fatal("expected terminal")
	}
}

func TestLoopState_String(t *testing.T) {
	for state, want := range map[LoopState]string{
		StateAwake:       "Awake",
		StateRunning:     "Running",
		StateSleeping:    "Sleeping",
		StateTerminating: "Terminating",
		StateTerminated:  "Terminated",
		LoopState(99):    "Unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("%d: expected %q, got %q", state, want, got)
		}
	}
}
