package convo

import "time"

// State tracks where a turn is in the model/tool round trip.
type State int

const (
	StateAwaitingModel State = iota
	StateToolCallDetected
	StateToolExecuting
	StateFinalAnswer
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "AWAITING_MODEL"
	case StateToolCallDetected:
		return "TOOL_CALL_DETECTED"
	case StateToolExecuting:
		return "TOOL_EXECUTING"
	case StateFinalAnswer:
		return "FINAL_ANSWER"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the turn is over in this state.
func (s State) Terminal() bool {
	return s == StateFinalAnswer || s == StateFailed
}

func transitionValid(from, to State) bool {
	validTransitions := map[State][]State{
		StateAwaitingModel:    {StateToolCallDetected, StateFinalAnswer, StateFailed},
		StateToolCallDetected: {StateToolExecuting, StateFailed},
		StateToolExecuting:    {StateAwaitingModel, StateFailed},
	}

	allowed, exists := validTransitions[from]
	if !exists {
		return false
	}
	for _, a := range allowed {
		if a == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError represents an invalid state transition attempt
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid state transition from " + e.From.String() + " to " + e.To.String()
}

// turnState is the per-turn state holder. Turns are single-goroutine, so no
// lock is needed; validation still guards against loop bugs.
type turnState struct {
	current State
	started time.Time
}

func newTurnState() *turnState {
	return &turnState{current: StateAwaitingModel, started: time.Now()}
}

func (t *turnState) State() State { return t.current }

func (t *turnState) Transition(to State) error {
	if !transitionValid(t.current, to) {
		return &InvalidTransitionError{From: t.current, To: to}
	}
	t.current = to
	return nil
}
