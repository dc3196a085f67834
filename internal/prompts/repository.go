package prompts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/prompthub/pkg/pagination"
	"github.com/JaimeStill/prompthub/pkg/query"
	"github.com/JaimeStill/prompthub/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a prompt repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "prompts"),
		pagination: pagination,
	}
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Prompt], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Title", "Category")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderBy(page.Sort)
	}

	result, err := repository.QueryPage(ctx, r.db, qb, page, scanPrompt)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	return result, nil
}

func (r *repo) All(ctx context.Context) ([]Prompt, error) {
	q, args := query.NewBuilder(projection, defaultSort).Build()

	prompts, err := repository.QueryMany(ctx, r.db, q, args, scanPrompt)
	if err != nil {
		return nil, fmt.Errorf("query prompts: %w", err)
	}
	return prompts, nil
}

func (r *repo) Find(ctx context.Context, id int64) (*Prompt, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanPrompt)
	if err != nil {
		return nil, repository.MapError(err, mapping)
	}
	return &p, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Prompt, error) {
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return nil, ErrInvalidTitle
	}

	category := cmd.Category
	if category == "" {
		category = "General"
	}

	q := `
		INSERT INTO prompt_templates(title, content, category)
		VALUES ($1, $2, $3)
		` + returning

	args := []any{title, cmd.Content, category}

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Prompt, error) {
		return repository.QueryOne(ctx, tx, q, args, scanPrompt)
	})

	if err != nil {
		return nil, repository.MapError(err, mapping)
	}

	r.logger.Info("prompt created", "id", p.ID, "title", p.Title)
	return &p, nil
}

func (r *repo) Content(ctx context.Context, id int64) (string, bool, error) {
	var content string
	err := r.db.
		QueryRowContext(ctx, "SELECT content FROM prompt_templates WHERE id = $1", id).
		Scan(&content)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query prompt content: %w", err)
	}
	return content, true, nil
}

func (r *repo) SetCurrentCommit(ctx context.Context, id int64, hash string) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			"UPDATE prompt_templates SET current_commit = $1 WHERE id = $2",
			hash, id,
		)
	})

	if err != nil {
		return repository.MapError(err, mapping)
	}

	r.logger.Info("prompt revision recorded", "id", id, "commit", hash)
	return nil
}

func (r *repo) Sync(ctx context.Context, id int64, content, hash string) (*Prompt, error) {
	q := `
		UPDATE prompt_templates
		SET content = $1, current_commit = $2, updated_at = NOW()
		WHERE id = $3
		` + returning

	args := []any{content, hash, id}

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Prompt, error) {
		return repository.QueryOne(ctx, tx, q, args, scanPrompt)
	})

	if err != nil {
		return nil, repository.MapError(err, mapping)
	}

	r.logger.Info("prompt synced", "id", p.ID, "commit", hash)
	return &p, nil
}
