package prompts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/prompthub/internal/versions"
)

// VersionStore is the subset of the version store a Publisher writes through.
type VersionStore interface {
	Exists(ctx context.Context, id int64) bool
	Read(ctx context.Context, id int64, revision string) (string, error)
	Save(ctx context.Context, id int64, content, message string, author versions.Signature) (string, error)
	Rollback(ctx context.Context, id int64, target, message string, author versions.Signature) (string, error)
}

// Publisher writes prompt changes to the version store first and then
// mirrors the result into the relational snapshot. A failed mirror leaves
// the committed revision in place; workflow runs read the version store and
// flag the divergence.
type Publisher struct {
	prompts  System
	versions VersionStore
	logger   *slog.Logger
}

// NewPublisher creates a Publisher over the relational and versioned stores.
func NewPublisher(prompts System, store VersionStore, logger *slog.Logger) *Publisher {
	return &Publisher{
		prompts:  prompts,
		versions: store,
		logger:   logger.With("system", "publisher"),
	}
}

// Save commits content as a new revision of prompt id and syncs the row.
func (p *Publisher) Save(ctx context.Context, id int64, content, message string, author versions.Signature) (string, error) {
	if _, err := p.prompts.Find(ctx, id); err != nil {
		return "", err
	}

	hash, err := p.versions.Save(ctx, id, content, message, author)
	if err != nil {
		return "", err
	}

	return hash, p.sync(ctx, id, content, hash)
}

// Rollback restores prompt id to target as a new revision and syncs the row
// with the content at target, not a later read of the working copy.
func (p *Publisher) Rollback(ctx context.Context, id int64, target, message string, author versions.Signature) (string, error) {
	content, err := p.versions.Read(ctx, id, target)
	if err != nil {
		return "", err
	}

	hash, err := p.versions.Rollback(ctx, id, target, message, author)
	if err != nil {
		return "", err
	}

	return hash, p.sync(ctx, id, content, hash)
}

func (p *Publisher) sync(ctx context.Context, id int64, content, hash string) error {
	if _, err := p.prompts.Sync(ctx, id, content, hash); err != nil {
		p.logger.WarnContext(ctx, "relational sync failed", "prompt_id", id, "commit", hash, "error", err)
		return fmt.Errorf("sync prompt %d after commit %s: %w", id, hash, err)
	}
	return nil
}

// ImportReport lists the prompts an Import committed and those it left alone
// because they already had a working copy.
type ImportReport struct {
	Imported []int64 `json:"imported"`
	Skipped  []int64 `json:"skipped"`
}

// Import commits every relational prompt that has no working copy yet and
// records the resulting revision on its row. Per-prompt failures do not stop
// the import; they are joined into the returned error.
func (p *Publisher) Import(ctx context.Context, author versions.Signature) (ImportReport, error) {
	report := ImportReport{Imported: []int64{}, Skipped: []int64{}}

	all, err := p.prompts.All(ctx)
	if err != nil {
		return report, err
	}

	var errs []error
	for _, prompt := range all {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if p.versions.Exists(ctx, prompt.ID) {
			report.Skipped = append(report.Skipped, prompt.ID)
			continue
		}

		message := fmt.Sprintf("Initial commit for prompt #%d: %s", prompt.ID, prompt.Title)
		hash, err := p.versions.Save(ctx, prompt.ID, prompt.Content, message, author)
		if err != nil {
			errs = append(errs, fmt.Errorf("import prompt %d: %w", prompt.ID, err))
			continue
		}

		if err := p.prompts.SetCurrentCommit(ctx, prompt.ID, hash); err != nil {
			errs = append(errs, fmt.Errorf("record commit for prompt %d: %w", prompt.ID, err))
			continue
		}

		report.Imported = append(report.Imported, prompt.ID)
	}

	p.logger.InfoContext(
		ctx, "prompt import complete",
		"imported", len(report.Imported),
		"skipped", len(report.Skipped),
		"failed", len(errs),
	)

	return report, errors.Join(errs...)
}
