package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonConnection ReasonCode = "connection"
	ReasonAuth       ReasonCode = "auth"
	ReasonRateLimit  ReasonCode = "rate_limit"

	ReasonParse            ReasonCode = "parse"
	ReasonUnknownTool      ReasonCode = "unknown_tool"
	ReasonUnknownParameter ReasonCode = "unknown_parameter"
	ReasonMissingParameter ReasonCode = "missing_parameter"
	ReasonTypeMismatch     ReasonCode = "type_mismatch"
	ReasonToolExecution    ReasonCode = "tool_execution"

	ReasonIterationLimit ReasonCode = "iteration_limit"
	ReasonCancelled      ReasonCode = "cancelled"
	ReasonTemplate       ReasonCode = "template"
)

// ToolDataReason reports whether the reason describes a bad tool call rather
// than a system fault. Tool-data failures are fed back to the model as failed
// tool results instead of ending the turn.
func ToolDataReason(r ReasonCode) bool {
	switch r {
	case ReasonUnknownTool, ReasonUnknownParameter, ReasonMissingParameter,
		ReasonTypeMismatch, ReasonToolExecution:
		return true
	}
	return false
}

// TerminalReason reports whether the reason must end the turn in a failed
// state rather than being recovered locally.
func TerminalReason(r ReasonCode) bool {
	switch r {
	case ReasonConnection, ReasonAuth, ReasonRateLimit,
		ReasonIterationLimit, ReasonCancelled, ReasonUnknown:
		return true
	}
	return false
}
