// Package prompts owns the relational snapshot of prompt templates. The
// snapshot is the fallback content source for workflow steps and mirrors
// the current revision pointer of the version store.
package prompts

import "time"

// Prompt is one prompt_templates row.
type Prompt struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Category      string    `json:"category"`
	CurrentCommit *string   `json:"current_commit"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateCommand carries the data needed to create a prompt.
type CreateCommand struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}
