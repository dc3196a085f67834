package workspaces

import (
	"github.com/JaimeStill/prompthub/internal/workflow"
	"github.com/JaimeStill/prompthub/pkg/query"
	"github.com/JaimeStill/prompthub/pkg/repository"
)

var projection = query.
	NewProjection("workflow_spaces", "w").
	Project("id", "ID").
	Project("name", "Name").
	Project("description", "Description").
	Project("prompt_sequence", "Sequence").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

const returning = "RETURNING id, name, description, prompt_sequence, created_at, updated_at"

var defaultSort = query.SortField{Field: "Name"}

var mapping = repository.Mapping{
	NotFound:  ErrNotFound,
	Duplicate: ErrDuplicate,
	Reference: ErrPromptNotFound,
}

func scanWorkspace(s repository.Scanner) (Workspace, error) {
	var w Workspace
	err := s.Scan(
		&w.ID,
		&w.Name,
		&w.Description,
		&w.Sequence,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	return w, err
}

func scanAssociation(s repository.Scanner) (Association, error) {
	var a Association
	err := s.Scan(&a.PromptID, &a.PromptTitle, &a.Position, &a.AddedAt)
	return a, err
}

func scanPromptRef(s repository.Scanner) (workflow.PromptRef, error) {
	var p workflow.PromptRef
	err := s.Scan(&p.ID, &p.Title)
	return p, err
}

func scanID(s repository.Scanner) (int64, error) {
	var id int64
	err := s.Scan(&id)
	return id, err
}
