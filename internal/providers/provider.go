// Package providers abstracts the AI services a workflow step is dispatched
// to. A Client generates text for one model; a Router maps model names to
// clients through an ordered routing table built once at configuration time.
package providers

import "context"

// Client is a stateless text generation provider.
type Client interface {
	// Name identifies the provider in logs, errors, and routing tables.
	Name() string
	// ListModels returns the model identifiers the provider serves.
	ListModels(ctx context.Context) ([]string, error)
	// Generate sends a single-turn prompt and returns the generated text.
	Generate(ctx context.Context, req Request) (string, error)
}

// Request is one generation call.
type Request struct {
	Prompt      string
	Model       string
	Temperature float64
	// Files are local paths attached to the prompt.
	Files []string
}
