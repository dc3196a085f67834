package prompts_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/prompthub/internal/prompts"
	"github.com/JaimeStill/prompthub/internal/versions"
)

var bob = versions.Signature{Name: "bob"}

// memPrompts serves the relational operations a Publisher touches. Other
// System methods panic through the nil embedded interface.
type memPrompts struct {
	prompts.System

	mu       sync.Mutex
	rows     map[int64]*prompts.Prompt
	syncErr  error
	commitOf map[int64]string
}

func newMemPrompts(rows ...prompts.Prompt) *memPrompts {
	m := &memPrompts{rows: map[int64]*prompts.Prompt{}, commitOf: map[int64]string{}}
	for _, r := range rows {
		m.rows[r.ID] = &r
	}
	return m
}

func (m *memPrompts) All(context.Context) ([]prompts.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []prompts.Prompt
	for id := int64(1); id <= int64(len(m.rows)); id++ {
		if r, ok := m.rows[id]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memPrompts) Find(_ context.Context, id int64) (*prompts.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rows[id]
	if !ok {
		return nil, prompts.ErrNotFound
	}
	p := *r
	return &p, nil
}

func (m *memPrompts) SetCurrentCommit(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.commitOf[id] = hash
	return nil
}

func (m *memPrompts) Sync(_ context.Context, id int64, content, hash string) (*prompts.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.syncErr != nil {
		return nil, m.syncErr
	}
	r := m.rows[id]
	r.Content = content
	m.commitOf[id] = hash
	p := *r
	return &p, nil
}

func newVersions(t *testing.T) *versions.Store {
	t.Helper()
	cfg := &versions.Config{Root: t.TempDir()}
	require.NoError(t, cfg.Finalize(nil))

	store, err := versions.New(cfg, discard)
	require.NoError(t, err)
	return store
}

func TestPublisherSave(t *testing.T) {
	ctx := context.Background()

	t.Run("commits and syncs", func(t *testing.T) {
		rel := newMemPrompts(prompts.Prompt{ID: 1, Title: "One", Content: "old"})
		store := newVersions(t)
		pub := prompts.NewPublisher(rel, store, discard)

		hash, err := pub.Save(ctx, 1, "new", "Edit prompt", bob)
		require.NoError(t, err)

		content, err := store.Read(ctx, 1, "")
		require.NoError(t, err)
		assert.Equal(t, "new", content)
		assert.Equal(t, "new", rel.rows[1].Content)
		assert.Equal(t, hash, rel.commitOf[1])
	})

	t.Run("unknown prompt", func(t *testing.T) {
		store := newVersions(t)
		pub := prompts.NewPublisher(newMemPrompts(), store, discard)

		_, err := pub.Save(ctx, 8, "x", "m", bob)
		assert.ErrorIs(t, err, prompts.ErrNotFound)
		assert.False(t, store.Exists(ctx, 8))
	})

	t.Run("sync failure keeps the revision", func(t *testing.T) {
		rel := newMemPrompts(prompts.Prompt{ID: 1, Title: "One", Content: "old"})
		rel.syncErr = errors.New("db down")
		store := newVersions(t)
		pub := prompts.NewPublisher(rel, store, discard)

		hash, err := pub.Save(ctx, 1, "new", "Edit", bob)
		require.Error(t, err)
		assert.NotEmpty(t, hash)

		content, err := store.Read(ctx, 1, "")
		require.NoError(t, err)
		assert.Equal(t, "new", content)
		assert.Equal(t, "old", rel.rows[1].Content)
	})
}

func TestPublisherRollback(t *testing.T) {
	ctx := context.Background()
	rel := newMemPrompts(prompts.Prompt{ID: 1, Title: "One"})
	store := newVersions(t)
	pub := prompts.NewPublisher(rel, store, discard)

	first, err := pub.Save(ctx, 1, "v1", "first", bob)
	require.NoError(t, err)
	_, err = pub.Save(ctx, 1, "v2", "second", bob)
	require.NoError(t, err)

	hash, err := pub.Rollback(ctx, 1, first, "", bob)
	require.NoError(t, err)

	assert.Equal(t, "v1", rel.rows[1].Content)
	assert.Equal(t, hash, rel.commitOf[1])

	history, err := store.History(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, hash, history[0].Hash)
}

// racingStore lands another save right after each rollback commit, the way a
// concurrent editor would.
type racingStore struct {
	*versions.Store
	next string
}

func (r *racingStore) Rollback(ctx context.Context, id int64, target, message string, author versions.Signature) (string, error) {
	hash, err := r.Store.Rollback(ctx, id, target, message, author)
	if err != nil {
		return "", err
	}
	if _, err := r.Store.Save(ctx, id, r.next, "concurrent edit", author); err != nil {
		return "", err
	}
	return hash, nil
}

func TestPublisherRollbackSyncsTargetContent(t *testing.T) {
	ctx := context.Background()

	t.Run("later save does not leak into the row", func(t *testing.T) {
		rel := newMemPrompts(prompts.Prompt{ID: 1, Title: "One"})
		store := &racingStore{Store: newVersions(t), next: "v3"}
		pub := prompts.NewPublisher(rel, store, discard)

		first, err := pub.Save(ctx, 1, "v1", "first", bob)
		require.NoError(t, err)
		_, err = pub.Save(ctx, 1, "v2", "second", bob)
		require.NoError(t, err)

		hash, err := pub.Rollback(ctx, 1, first, "", bob)
		require.NoError(t, err)

		assert.Equal(t, "v1", rel.rows[1].Content)
		assert.Equal(t, hash, rel.commitOf[1])

		content, err := store.Read(ctx, 1, hash)
		require.NoError(t, err)
		assert.Equal(t, "v1", content)
	})

	t.Run("unknown target commits nothing", func(t *testing.T) {
		rel := newMemPrompts(prompts.Prompt{ID: 1, Title: "One"})
		store := newVersions(t)
		pub := prompts.NewPublisher(rel, store, discard)

		saved, err := pub.Save(ctx, 1, "v1", "first", bob)
		require.NoError(t, err)

		_, err = pub.Rollback(ctx, 1, "0000000000000000000000000000000000000000", "", bob)
		require.Error(t, err)

		history, err := store.History(ctx, 1, 0)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, saved, rel.commitOf[1])
		assert.Equal(t, "v1", rel.rows[1].Content)
	})
}

func TestPublisherImport(t *testing.T) {
	ctx := context.Background()
	rel := newMemPrompts(
		prompts.Prompt{ID: 1, Title: "Summarize", Content: "summarize {{input}}"},
		prompts.Prompt{ID: 2, Title: "Translate", Content: "translate"},
	)
	store := newVersions(t)
	_, err := store.Save(ctx, 2, "already versioned", "seed", bob)
	require.NoError(t, err)

	pub := prompts.NewPublisher(rel, store, discard)
	report, err := pub.Import(ctx, bob)
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, report.Imported)
	assert.Equal(t, []int64{2}, report.Skipped)

	content, err := store.Read(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, "summarize {{input}}", content)

	history, err := store.History(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Initial commit for prompt #1: Summarize", history[0].Message)
	assert.Equal(t, history[0].Hash, rel.commitOf[1])

	t.Run("rerun skips everything", func(t *testing.T) {
		report, err := pub.Import(ctx, bob)
		require.NoError(t, err)
		assert.Empty(t, report.Imported)
		assert.Equal(t, []int64{1, 2}, report.Skipped)
	})
}
