package prompts

import (
	"github.com/JaimeStill/prompthub/pkg/query"
	"github.com/JaimeStill/prompthub/pkg/repository"
)

var projection = query.
	NewProjection("prompt_templates", "p").
	Project("id", "ID").
	Project("title", "Title").
	Project("content", "Content").
	Project("category", "Category").
	Project("current_commit", "CurrentCommit").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

const returning = "RETURNING id, title, content, category, current_commit, created_at, updated_at"

var defaultSort = query.SortField{Field: "ID"}

var mapping = repository.Mapping{NotFound: ErrNotFound}

// Filters narrows List results. Nil fields are ignored.
type Filters struct {
	Category *string
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.WhereEquals("Category", f.Category)
}

func scanPrompt(s repository.Scanner) (Prompt, error) {
	var p Prompt
	err := s.Scan(
		&p.ID,
		&p.Title,
		&p.Content,
		&p.Category,
		&p.CurrentCommit,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}
