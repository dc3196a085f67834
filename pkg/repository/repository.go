// Package repository holds the SQL plumbing shared by the prompt and
// workspace repositories: typed row scanning, paged listings, row locks for
// sequence edits, and driver error translation.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JaimeStill/prompthub/pkg/pagination"
	"github.com/JaimeStill/prompthub/pkg/query"
)

// Querier runs reads against a pool or an open transaction.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Executor runs writes against a pool or an open transaction.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanFunc reads one row into T.
type ScanFunc[T any] func(Scanner) (T, error)

// WithTx runs fn in a transaction and commits when fn succeeds. Errors from
// fn are returned as is so callers can map them.
func WithTx[T any](ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (T, error) {
	var zero T

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zero, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := fn(tx)
	if err != nil {
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		return zero, fmt.Errorf("commit transaction: %w", err)
	}
	return result, nil
}

// QueryOne scans the single row query returns. A missing row surfaces as
// sql.ErrNoRows.
func QueryOne[T any](ctx context.Context, q Querier, query string, args []any, scan ScanFunc[T]) (T, error) {
	return scan(q.QueryRowContext(ctx, query, args...))
}

// QueryMany scans every row query returns. No rows yields an empty, non-nil
// slice so listings serialize as [].
func QueryMany[T any](ctx context.Context, q Querier, query string, args []any, scan ScanFunc[T]) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

// QueryPage counts the rows qb matches and scans the requested page. page
// must already be normalized.
func QueryPage[T any](
	ctx context.Context,
	q Querier,
	qb *query.Builder,
	page pagination.PageRequest,
	scan ScanFunc[T],
) (*pagination.PageResult[T], error) {
	countSQL, countArgs := qb.BuildCount()

	var total int
	if err := q.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := QueryMany(ctx, q, pageSQL, pageArgs, scan)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page.Page, err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

// LockOne selects the row whose field equals id with FOR UPDATE, holding it
// until tx ends. Sequence edits use it to serialize concurrent writers.
func LockOne[T any](ctx context.Context, tx *sql.Tx, qb *query.Builder, field string, id any, scan ScanFunc[T]) (T, error) {
	q, args := qb.BuildSingle(field, id)
	return QueryOne(ctx, tx, q+" FOR UPDATE", args, scan)
}

// ExecExpectOne runs a statement that must touch exactly one row. Touching
// none returns sql.ErrNoRows, which MapError turns into the domain's
// not-found error.
func ExecExpectOne(ctx context.Context, e Executor, query string, args ...any) error {
	result, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
