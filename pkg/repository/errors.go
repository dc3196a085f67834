package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgDuplicateKeyCode = "23505"
	pgForeignKeyCode   = "23503"
)

// Mapping names the domain errors a repository translates driver errors into.
// Nil fields leave the corresponding driver error unchanged.
type Mapping struct {
	NotFound  error
	Duplicate error
	Reference error
}

// MapError translates database errors to domain errors: sql.ErrNoRows to
// NotFound, unique violations (23505) to Duplicate, and foreign key
// violations (23503) to Reference. Other errors are returned unchanged.
func MapError(err error, m Mapping) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) && m.NotFound != nil {
		return m.NotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgDuplicateKeyCode && m.Duplicate != nil:
			return m.Duplicate
		case pgErr.Code == pgForeignKeyCode && m.Reference != nil:
			return m.Reference
		}
	}

	return err
}
