package convo

import (
	"errors"
	"testing"
)

func TestValidTransitionPath(t *testing.T) {
	st := newTurnState()
	for _, next := range []State{StateToolCallDetected, StateToolExecuting, StateAwaitingModel, StateFinalAnswer} {
		if err := st.Transition(next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}
	if !st.State().Terminal() {
		t.Fatalf("expected terminal state, got %s", st.State())
	}
}

func TestInvalidTransition(t *testing.T) {
	st := newTurnState()
	err := st.Transition(StateToolExecuting)
	if err == nil {
		t.Fatal("expected invalid transition error")
	}
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("unexpected error type %T", err)
	}
	if invalid.From != StateAwaitingModel || invalid.To != StateToolExecuting {
		t.Fatalf("unexpected error %v", invalid)
	}
}

func TestTerminalStateHasNoExits(t *testing.T) {
	if transitionValid(StateFinalAnswer, StateAwaitingModel) {
		t.Fatal("final answer must be terminal")
	}
	if transitionValid(StateFailed, StateAwaitingModel) {
		t.Fatal("failed must be terminal")
	}
}

func TestStateStrings(t *testing.T) {
	cases := map[State]string{
		StateAwaitingModel:    "AWAITING_MODEL",
		StateToolCallDetected: "TOOL_CALL_DETECTED",
		StateToolExecuting:    "TOOL_EXECUTING",
		StateFinalAnswer:      "FINAL_ANSWER",
		StateFailed:           "FAILED",
		State(99):             "UNKNOWN",
	}
	for state, want := range cases {
		if state.String() != want {
			t.Fatalf("%d.String() = %q, want %q", state, state.String(), want)
		}
	}
}
