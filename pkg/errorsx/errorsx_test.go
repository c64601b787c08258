package errorsx

import "testing"

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonUnknownTool)
	if Reason(err) != ReasonUnknownTool {
		t.Fatalf("expected reason %s, got %s", ReasonUnknownTool, Reason(err))
	}
	if !HasReason(err, ReasonUnknownTool) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonConnection)
	second := Wrap(first, ReasonToolExecution)
	if Reason(second) != ReasonConnection {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestToolDataReason(t *testing.T) {
	for _, r := range []ReasonCode{ReasonUnknownTool, ReasonUnknownParameter, ReasonMissingParameter, ReasonTypeMismatch, ReasonToolExecution} {
		if !ToolDataReason(r) {
			t.Fatalf("expected %s to be a tool-data reason", r)
		}
		if TerminalReason(r) {
			t.Fatalf("tool-data reason %s must not be terminal", r)
		}
	}
	for _, r := range []ReasonCode{ReasonConnection, ReasonAuth, ReasonIterationLimit, ReasonCancelled, ReasonUnknown} {
		if !TerminalReason(r) {
			t.Fatalf("expected %s to be terminal", r)
		}
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
