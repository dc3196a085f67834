// Package workflow executes a workspace's ordered prompt sequence as a
// linear pipeline. Each step resolves its prompt content, folds the previous
// step's output into it, and dispatches the result to the provider client
// serving the requested model.
package workflow

import (
	"context"

	"github.com/JaimeStill/prompthub/internal/providers"
)

// PromptRef identifies one step of a sequence.
type PromptRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Definition is the immutable input to a run: the prompts of a workspace in
// execution order.
type Definition struct {
	WorkspaceID int64       `json:"workspace_id"`
	Prompts     []PromptRef `json:"prompts"`
}

// Options control a single run.
type Options struct {
	InitialInput string
	// Model falls back to Config.DefaultModel when empty.
	Model       string
	Temperature float64
	StopOnError bool
	// Files are attached to every step's provider request.
	Files []string
}

// ContentStore is the authoritative source of prompt content.
type ContentStore interface {
	Exists(ctx context.Context, id int64) bool
	Read(ctx context.Context, id int64, revision string) (string, error)
}

// FallbackSource serves prompt content for prompts without a working copy.
type FallbackSource interface {
	Content(ctx context.Context, id int64) (string, bool, error)
}

// ClientRouter resolves a model name to the client that serves it.
type ClientRouter interface {
	Resolve(ctx context.Context, model string) (providers.Client, error)
}
