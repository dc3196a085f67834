package prompts_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/prompthub/internal/prompts"
	"github.com/JaimeStill/prompthub/pkg/pagination"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var columns = []string{"id", "title", "content", "category", "current_commit", "created_at", "updated_at"}

func newRepo(t *testing.T) (prompts.System, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var cfg pagination.Config
	require.NoError(t, cfg.Finalize(nil))

	return prompts.New(db, discard, cfg), mock
}

func row(id int64, title, content string, commit any) []driver.Value {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []driver.Value{id, title, content, "General", commit, now, now}
}

func TestFind(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		sys, mock := newRepo(t)
		mock.ExpectQuery(`SELECT p.id, p.title, .* FROM prompt_templates p WHERE p.id = \$1`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(row(3, "Summarize", "body", "abc")...))

		p, err := sys.Find(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "Summarize", p.Title)
		require.NotNil(t, p.CurrentCommit)
		assert.Equal(t, "abc", *p.CurrentCommit)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		sys, mock := newRepo(t)
		mock.ExpectQuery(`FROM prompt_templates p WHERE p.id = \$1`).
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := sys.Find(ctx, 9)
		assert.ErrorIs(t, err, prompts.ErrNotFound)
		assert.Equal(t, 404, prompts.MapHTTPStatus(err))
	})
}

func TestContent(t *testing.T) {
	ctx := context.Background()

	t.Run("present", func(t *testing.T) {
		sys, mock := newRepo(t)
		mock.ExpectQuery(`SELECT content FROM prompt_templates WHERE id = \$1`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"content"}).AddRow("hello"))

		content, ok, err := sys.Content(ctx, 1)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "hello", content)
	})

	t.Run("missing row is not an error", func(t *testing.T) {
		sys, mock := newRepo(t)
		mock.ExpectQuery(`SELECT content FROM prompt_templates`).
			WillReturnRows(sqlmock.NewRows([]string{"content"}))

		content, ok, err := sys.Content(ctx, 2)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, content)
	})

	t.Run("query failure", func(t *testing.T) {
		sys, mock := newRepo(t)
		mock.ExpectQuery(`SELECT content FROM prompt_templates`).
			WillReturnError(errors.New("connection reset"))

		_, ok, err := sys.Content(ctx, 2)
		assert.Error(t, err)
		assert.False(t, ok)
	})
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults category", func(t *testing.T) {
		sys, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO prompt_templates\(title, content, category\)`).
			WithArgs("Outline", "write an outline", "General").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(row(5, "Outline", "write an outline", nil)...))
		mock.ExpectCommit()

		p, err := sys.Create(ctx, prompts.CreateCommand{Title: " Outline ", Content: "write an outline"})
		require.NoError(t, err)
		assert.Equal(t, int64(5), p.ID)
		assert.Nil(t, p.CurrentCommit)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects blank title", func(t *testing.T) {
		sys, _ := newRepo(t)
		_, err := sys.Create(ctx, prompts.CreateCommand{Title: "  "})
		assert.ErrorIs(t, err, prompts.ErrInvalidTitle)
		assert.Equal(t, 400, prompts.MapHTTPStatus(err))
	})
}

func TestSetCurrentCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("updates", func(t *testing.T) {
		sys, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE prompt_templates SET current_commit = \$1 WHERE id = \$2`).
			WithArgs("deadbeef", int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, sys.SetCurrentCommit(ctx, 4, "deadbeef"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		sys, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE prompt_templates`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		assert.ErrorIs(t, sys.SetCurrentCommit(ctx, 4, "deadbeef"), prompts.ErrNotFound)
	})
}

func TestSync(t *testing.T) {
	sys, mock := newRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE prompt_templates\s+SET content = \$1, current_commit = \$2, updated_at = NOW\(\)`).
		WithArgs("new body", "cafe", int64(2)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(row(2, "T", "new body", "cafe")...))
	mock.ExpectCommit()

	p, err := sys.Sync(context.Background(), 2, "new body", "cafe")
	require.NoError(t, err)
	assert.Equal(t, "new body", p.Content)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	sys, mock := newRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM prompt_templates p WHERE \(p.title ILIKE \$1 OR p.category ILIKE \$2\)`).
		WithArgs("%plan%", "%plan%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`ORDER BY p.title DESC LIMIT 2 OFFSET 0`).
		WithArgs("%plan%", "%plan%").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(row(2, "Plan B", "b", nil)...).
			AddRow(row(1, "Plan A", "a", nil)...))

	var cfg pagination.Config
	require.NoError(t, cfg.Finalize(nil))
	page := pagination.NewPageRequest(1, 2, "plan", "-Title", cfg)

	result, err := sys.List(context.Background(), page, prompts.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.TotalPages)
	require.Len(t, result.Data, 2)
	assert.Equal(t, "Plan B", result.Data[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}
