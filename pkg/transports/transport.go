package transports

import "context"

// Envelope is one chat message crossing a transport boundary. ConversationID
// routes the reply back to the right session.
type Envelope struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	Err            string `json:"error,omitempty"`
}

// Transport defines a vendor-agnostic I/O boundary for chat envelopes.
// Implementations are responsible for their own network lifecycle.
type Transport interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Recv() <-chan Envelope
	Send(Envelope) error
}

// ReadyReporter allows transports to expose readiness metadata (e.g., listen
// addresses). Implementations are optional and used for informational logging
// only.
type ReadyReporter interface {
	ReadyFields() map[string]any
}
