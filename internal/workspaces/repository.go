package workspaces

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/prompthub/internal/workflow"
	"github.com/JaimeStill/prompthub/pkg/pagination"
	"github.com/JaimeStill/prompthub/pkg/query"
	"github.com/JaimeStill/prompthub/pkg/repository"
)

const (
	updateSequence = `
		UPDATE workflow_spaces
		SET prompt_sequence = $1, updated_at = NOW()
		WHERE id = $2
		` + returning

	updatePositions = `
		UPDATE workflow_prompt_associations a
		SET position = s.ord - 1
		FROM jsonb_array_elements_text($1::jsonb) WITH ORDINALITY AS s(prompt_id, ord)
		WHERE a.workspace_id = $2 AND a.prompt_id = s.prompt_id::bigint`

	selectDefinition = `
		SELECT p.id, p.title
		FROM jsonb_array_elements_text($1::jsonb) WITH ORDINALITY AS s(prompt_id, ord)
		JOIN prompt_templates p ON p.id = s.prompt_id::bigint
		ORDER BY s.ord`

	selectAssociations = `
		SELECT a.prompt_id, p.title, a.position, a.added_at
		FROM workflow_prompt_associations a
		JOIN prompt_templates p ON p.id = a.prompt_id
		WHERE a.workspace_id = $1
		ORDER BY a.position, a.added_at`
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a workspace repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "workspaces"),
		pagination: pagination,
	}
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Workspace], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Description")

	if len(page.Sort) > 0 {
		qb.OrderBy(page.Sort)
	}

	result, err := repository.QueryPage(ctx, r.db, qb, page, scanWorkspace)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	return result, nil
}

func (r *repo) Find(ctx context.Context, id int64) (*Workspace, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	w, err := repository.QueryOne(ctx, r.db, q, args, scanWorkspace)
	if err != nil {
		return nil, repository.MapError(err, mapping)
	}
	return &w, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Workspace, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	q := `
		INSERT INTO workflow_spaces(name, description, prompt_sequence)
		VALUES ($1, $2, '[]')
		` + returning

	args := []any{name, cmd.Description}

	w, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Workspace, error) {
		return repository.QueryOne(ctx, tx, q, args, scanWorkspace)
	})

	if err != nil {
		return nil, repository.MapError(err, mapping)
	}

	r.logger.Info("workspace created", "id", w.ID, "name", w.Name)
	return &w, nil
}

func (r *repo) Delete(ctx context.Context, id int64) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM workflow_spaces WHERE id = $1",
			id,
		)
	})

	if err != nil {
		return repository.MapError(err, mapping)
	}

	r.logger.Info("workspace deleted", "id", id)
	return nil
}

func (r *repo) Associations(ctx context.Context, id int64) ([]Association, error) {
	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}

	assocs, err := repository.QueryMany(ctx, r.db, selectAssociations, []any{id}, scanAssociation)
	if err != nil {
		return nil, fmt.Errorf("query associations: %w", err)
	}
	return assocs, nil
}

func (r *repo) AddPrompt(ctx context.Context, id, promptID int64) (*Workspace, error) {
	w, err := r.mutate(ctx, id, func(tx *sql.Tx, current Workspace) (Sequence, error) {
		seq, err := current.Sequence.Append(promptID)
		if err != nil {
			return nil, fmt.Errorf("%w: %d", ErrDuplicate, promptID)
		}

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO workflow_prompt_associations(workspace_id, prompt_id, position) VALUES ($1, $2, $3)`,
			id, promptID, len(current.Sequence),
		); err != nil {
			return nil, err
		}
		return seq, nil
	})

	if err != nil {
		return nil, err
	}

	r.logger.Info("prompt added to workspace", "id", id, "prompt_id", promptID)
	return w, nil
}

func (r *repo) RemovePrompt(ctx context.Context, id, promptID int64) (*Workspace, error) {
	w, err := r.mutate(ctx, id, func(tx *sql.Tx, current Workspace) (Sequence, error) {
		err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM workflow_prompt_associations WHERE workspace_id = $1 AND prompt_id = $2",
			id, promptID,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrNotAssociated, promptID)
		}
		if err != nil {
			return nil, err
		}
		return current.Sequence.Remove(promptID), nil
	})

	if err != nil {
		return nil, err
	}

	r.logger.Info("prompt removed from workspace", "id", id, "prompt_id", promptID)
	return w, nil
}

func (r *repo) Reorder(ctx context.Context, id int64, ids []int64) (*Workspace, error) {
	if len(ids) == 0 {
		return nil, ErrEmptySequence
	}

	w, err := r.mutate(ctx, id, func(tx *sql.Tx, _ Workspace) (Sequence, error) {
		associated, err := repository.QueryMany(
			ctx, tx,
			"SELECT prompt_id FROM workflow_prompt_associations WHERE workspace_id = $1",
			[]any{id}, scanID,
		)
		if err != nil {
			return nil, err
		}

		seq, err := Reorder(ids, associated)
		if err != nil {
			return nil, err
		}

		if _, err := tx.ExecContext(ctx, updatePositions, seq, id); err != nil {
			return nil, err
		}
		return seq, nil
	})

	if err != nil {
		return nil, err
	}

	r.logger.Info("workspace sequence reordered", "id", id, "prompts", len(ids))
	return w, nil
}

func (r *repo) Definition(ctx context.Context, id int64) (*workflow.Definition, error) {
	w, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	refs, err := repository.QueryMany(ctx, r.db, selectDefinition, []any{w.Sequence}, scanPromptRef)
	if err != nil {
		return nil, fmt.Errorf("resolve sequence: %w", err)
	}

	if len(refs) < len(w.Sequence) {
		r.logger.WarnContext(
			ctx, "sequence references missing prompts",
			"id", id,
			"sequence", len(w.Sequence),
			"resolved", len(refs),
		)
	}

	return &workflow.Definition{WorkspaceID: w.ID, Prompts: refs}, nil
}

// mutate locks the workspace row, lets fn derive the new sequence inside the
// same transaction, and persists it.
func (r *repo) mutate(
	ctx context.Context,
	id int64,
	fn func(tx *sql.Tx, current Workspace) (Sequence, error),
) (*Workspace, error) {
	w, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Workspace, error) {
		current, err := repository.LockOne(ctx, tx, query.NewBuilder(projection), "ID", id, scanWorkspace)
		if err != nil {
			return Workspace{}, err
		}

		seq, err := fn(tx, current)
		if err != nil {
			return Workspace{}, err
		}

		return repository.QueryOne(ctx, tx, updateSequence, []any{seq, id}, scanWorkspace)
	})

	if err != nil {
		return nil, repository.MapError(err, mapping)
	}
	return &w, nil
}
