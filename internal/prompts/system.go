package prompts

import (
	"context"

	"github.com/JaimeStill/prompthub/pkg/pagination"
)

// System defines the public contract for relational prompt operations.
type System interface {
	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Prompt], error)

	// All returns every prompt ordered by id.
	All(ctx context.Context) ([]Prompt, error)
	Find(ctx context.Context, id int64) (*Prompt, error)
	Create(ctx context.Context, cmd CreateCommand) (*Prompt, error)

	// Content is the relational fallback: the stored content and whether the
	// prompt row exists.
	Content(ctx context.Context, id int64) (string, bool, error)

	// SetCurrentCommit records the newest revision hash without touching
	// content.
	SetCurrentCommit(ctx context.Context, id int64, hash string) error

	// Sync overwrites content and the revision pointer together.
	Sync(ctx context.Context, id int64, content, hash string) (*Prompt, error)
}
