// Package llm abstracts the completion backends used to write run commentary.
package llm

import "context"

// Request is a single system+prompt completion. Commentary never carries
// conversation state, so the interface stays one-shot.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Result holds the completion text and the token counts the backend reported.
// Counts are zero when a backend does not report usage.
type Result struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Provider is one completion backend.
type Provider interface {
	// Name identifies the backend in config and logs.
	Name() string

	// Complete runs one completion. Backends wrap transport failures in
	// core.ErrLLMFailed and deadline hits in core.ErrLLMTimeout.
	Complete(ctx context.Context, req Request) (Result, error)
}
