package workspaces

import (
	"context"

	"github.com/JaimeStill/prompthub/internal/workflow"
	"github.com/JaimeStill/prompthub/pkg/pagination"
)

// System defines the public contract for workspace operations. Every
// sequence mutation runs in one transaction holding the workspace row lock.
type System interface {
	List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Workspace], error)
	Find(ctx context.Context, id int64) (*Workspace, error)
	Create(ctx context.Context, cmd CreateCommand) (*Workspace, error)
	Delete(ctx context.Context, id int64) error

	// Associations lists the prompts attached to a workspace.
	Associations(ctx context.Context, id int64) ([]Association, error)

	// AddPrompt associates a prompt and appends it to the sequence.
	AddPrompt(ctx context.Context, id, promptID int64) (*Workspace, error)

	// RemovePrompt drops the association and the prompt's sequence entry.
	RemovePrompt(ctx context.Context, id, promptID int64) (*Workspace, error)

	// Reorder replaces the sequence with ids.
	Reorder(ctx context.Context, id int64, ids []int64) (*Workspace, error)

	// Definition resolves the sequence into an executable definition.
	// Prompts whose rows no longer exist are skipped.
	Definition(ctx context.Context, id int64) (*workflow.Definition, error)
}
