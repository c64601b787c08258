package llm

import "context"

// Request is a single prompt for the model server. System carries the rendered
// system prompt; Prompt carries the user-facing transcript for this call.
type Request struct {
	Model  string
	System string
	Prompt string
}

// Reply is the model's free-text answer.
type Reply struct {
	Text string
}

// Client reaches a model server. Implementations must honor ctx cancellation
// and attach errorsx reason codes to failures so callers can classify them.
type Client interface {
	Name() string
	Generate(ctx context.Context, req Request) (Reply, error)
}

// Pinger is implemented by clients that can probe server availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ModelLister is implemented by clients that can enumerate served models.
type ModelLister interface {
	Models(ctx context.Context) ([]string, error)
}
