package ai

import "context"

// Request is a single system/user prompt exchange.
type Request struct {
	System string
	Prompt string
	// JSON asks the backend for a JSON-only answer when it supports that mode.
	JSON bool
}

// Provider is one LLM backend. Implementations return an error for any
// transport, status or empty-response failure.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
	Model() string
}

// Caller is what enrichment and scoring stages depend on. A false result
// means no usable text was produced.
type Caller interface {
	Call(ctx context.Context, req Request) (string, bool)
}
