// Package migrations embeds the relational schema and applies it with
// golang-migrate.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
)

//go:embed *.sql
var files embed.FS

// Source returns the embedded migration files as a golang-migrate source.
func Source() (source.Driver, error) {
	src, err := iofs.New(files, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	return src, nil
}

// Migrator applies the embedded schema to one database.
type Migrator struct {
	m      *migrate.Migrate
	logger *slog.Logger
}

// New opens a migrator against dsn.
func New(dsn string, logger *slog.Logger) (*Migrator, error) {
	src, err := Source()
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	logger = logger.With("system", "migrations")
	m.Log = &migrateLogger{logger: logger}

	return &Migrator{m: m, logger: logger}, nil
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

// Up applies all pending migrations.
func (m *Migrator) Up() error {
	return m.run("up", m.m.Up)
}

// Down reverts all migrations.
func (m *Migrator) Down() error {
	return m.run("down", m.m.Down)
}

// Steps applies n migrations; negative n reverts.
func (m *Migrator) Steps(n int) error {
	return m.run(fmt.Sprintf("steps %d", n), func() error { return m.m.Steps(n) })
}

// Force sets the recorded version without running migrations.
func (m *Migrator) Force(version int) error {
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	m.logger.Warn("migration version forced", "version", version)
	return nil
}

// Version reports the applied version and whether the last run left it dirty.
// A database with no migrations applied reports version 0.
func (m *Migrator) Version() (uint, bool, error) {
	v, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read version: %w", err)
	}
	return v, dirty, nil
}

func (m *Migrator) run(op string, fn func() error) error {
	err := fn()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("schema up to date", "op", op)
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}
	m.logger.Info("migrations applied", "op", op)
	return nil
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
