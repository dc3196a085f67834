// Package workspaces groups prompts into workspaces and maintains the
// ordered prompt sequence each workspace executes.
package workspaces

import "time"

// Workspace is one workflow_spaces row.
type Workspace struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Sequence    Sequence  `json:"prompt_sequence"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Association links a prompt to a workspace.
type Association struct {
	PromptID    int64     `json:"prompt_id"`
	PromptTitle string    `json:"prompt_title"`
	Position    int       `json:"position"`
	AddedAt     time.Time `json:"added_at"`
}

// CreateCommand carries the data needed to create a workspace.
type CreateCommand struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}
