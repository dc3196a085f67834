// Package executions archives workflow outcomes as JSON documents in blob
// storage, keyed by workspace and run.
package executions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/prompthub/internal/workflow"
	"github.com/JaimeStill/prompthub/pkg/storage"
)

const (
	prefix      = "executions"
	contentType = "application/json"
)

// Blobs is the subset of storage.System the archive needs.
type Blobs interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// Archive stores outcomes at executions/<workspace>/<run>.json.
type Archive struct {
	blobs  Blobs
	logger *slog.Logger
}

// New creates an Archive over blobs.
func New(blobs Blobs, logger *slog.Logger) *Archive {
	return &Archive{
		blobs:  blobs,
		logger: logger.With("system", "executions"),
	}
}

// Key returns the blob key for one run.
func Key(workspaceID int64, runID uuid.UUID) string {
	return path.Join(prefix, strconv.FormatInt(workspaceID, 10), runID.String()+".json")
}

// Save writes out and returns its key.
func (a *Archive) Save(ctx context.Context, out *workflow.Outcome) (string, error) {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode outcome: %w", err)
	}

	key := Key(out.WorkspaceID, out.RunID)
	if err := a.blobs.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return "", fmt.Errorf("%w: %w", ErrArchive, err)
	}

	a.logger.InfoContext(ctx, "outcome archived", "key", key, "success", out.Success)
	return key, nil
}

// Find reads back one archived outcome.
func (a *Archive) Find(ctx context.Context, workspaceID int64, runID uuid.UUID) (*workflow.Outcome, error) {
	key := Key(workspaceID, runID)

	rc, err := a.blobs.Download(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchive, err)
	}
	defer rc.Close()

	var out workflow.Outcome
	if err := json.NewDecoder(rc).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrArchive, key, err)
	}
	return &out, nil
}

// Runs lists the archived run ids of a workspace. Keys that do not name a
// run are ignored.
func (a *Archive) Runs(ctx context.Context, workspaceID int64) ([]uuid.UUID, error) {
	dir := path.Join(prefix, strconv.FormatInt(workspaceID, 10)) + "/"

	keys, err := a.blobs.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchive, err)
	}

	runs := make([]uuid.UUID, 0, len(keys))
	for _, key := range keys {
		name, ok := strings.CutSuffix(strings.TrimPrefix(key, dir), ".json")
		if !ok {
			continue
		}
		id, err := uuid.Parse(name)
		if err != nil {
			continue
		}
		runs = append(runs, id)
	}
	return runs, nil
}
