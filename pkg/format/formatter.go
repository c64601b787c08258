package format

import (
	"strings"

	"github.com/harunnryd/halo/pkg/errorsx"
	"github.com/harunnryd/halo/pkg/prompt"
)

// Formatter turns loop outcomes into user-facing text.
type Formatter struct {
	tpl prompt.Templates
}

func New(tpl prompt.Templates) *Formatter {
	return &Formatter{tpl: tpl}
}

// FinalAnswer wraps the model's answer with the configured prefix and suffix.
func (f *Formatter) FinalAnswer(text string) string {
	if f.tpl.OutputPrefix == "" && f.tpl.OutputSuffix == "" {
		return text
	}
	return strings.TrimSpace(f.tpl.OutputPrefix + "\n" + text + "\n" + f.tpl.OutputSuffix)
}

// SuccessAck is the fallback reply when a tool ran but the model produced no
// closing text.
func (f *Formatter) SuccessAck() string {
	return f.tpl.SuccessAcknowledgment
}

// FailureText renders an error for the user, substituting a reason-specific
// description into the error template. Internal detail stays in the logs.
func (f *Formatter) FailureText(err error) string {
	return strings.Replace(f.tpl.ErrorFormat, "{error}", describe(err), 1)
}

// ToolFeedback renders a tool failure for the model, keeping the concrete
// detail so it can correct the invocation.
func (f *Formatter) ToolFeedback(toolName string, err error) string {
	return toolName + " failed: " + err.Error()
}

func describe(err error) string {
	switch errorsx.Reason(err) {
	case errorsx.ReasonConnection:
		return "the model server could not be reached"
	case errorsx.ReasonAuth:
		return "the model server rejected the credentials"
	case errorsx.ReasonRateLimit:
		return "the model server is overloaded, try again shortly"
	case errorsx.ReasonIterationLimit:
		return "the request needed too many tool calls"
	case errorsx.ReasonCancelled:
		return "the request was cancelled"
	case errorsx.ReasonToolExecution:
		return "a device action failed"
	case errorsx.ReasonTemplate:
		return "the assistant is misconfigured"
	default:
		if err != nil {
			return err.Error()
		}
		return "an unknown problem occurred"
	}
}
