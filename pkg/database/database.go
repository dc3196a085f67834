// Package database owns the prompthub PostgreSQL pool: it opens it through
// pgx, checks reachability and schema state at startup, and closes it on
// shutdown.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/prompthub/pkg/lifecycle"
)

// System manages database connections and lifecycle coordination.
type System interface {
	// Connection returns the underlying database connection pool.
	Connection() *sql.DB
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type database struct {
	conn        *sql.DB
	logger      *slog.Logger
	connTimeout time.Duration
}

// New parses the DSN into a pgx connection config, tags sessions with the
// configured application name, and sizes the pool. No connection is made
// until Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	connCfg, err := pgx.ParseConfig(cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	if cfg.ApplicationName != "" {
		connCfg.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn: db,
		logger: logger.With(
			"system", "database",
			"host", connCfg.Host,
			"database", connCfg.Database,
		),
		connTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("starting database connection")

	lc.OnStartup(func() error {
		ctx, cancel := context.WithTimeout(lc.Context(), d.connTimeout)
		defer cancel()

		if err := d.conn.PingContext(ctx); err != nil {
			d.logger.Error("database ping failed", "error", err)
			return fmt.Errorf("%w: %w", ErrNotReady, err)
		}

		d.reportSchema(ctx)
		return nil
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()

		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}

		d.logger.Info("database connection closed")
	})

	return nil
}

// reportSchema logs the applied migration version. A missing or dirty
// schema is logged, not fatal: `prompthub migrate` has to run against it.
func (d *database) reportSchema(ctx context.Context) {
	s, err := schemaState(ctx, d.conn)
	switch {
	case err != nil:
		d.logger.Warn("schema version unavailable", "error", err)
	case !s.Migrated:
		d.logger.Warn("database connection established; schema not migrated, run `prompthub migrate up`")
	case s.Dirty:
		d.logger.Warn("database connection established; schema dirty", "version", s.Version)
	default:
		d.logger.Info("database connection established", "schema_version", s.Version)
	}
}

// Schema is the migration state golang-migrate records in schema_migrations.
type Schema struct {
	Version  uint
	Dirty    bool
	Migrated bool
}

const pgUndefinedTable = "42P01"

const selectSchema = `SELECT version, dirty FROM schema_migrations LIMIT 1`

// schemaState reads the migration state. A database that was never migrated
// has no schema_migrations table and reports Migrated false.
func schemaState(ctx context.Context, db *sql.DB) (Schema, error) {
	var (
		version int64
		dirty   bool
	)
	err := db.QueryRowContext(ctx, selectSchema).Scan(&version, &dirty)

	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Schema{}, nil
	case errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable:
		return Schema{}, nil
	case err != nil:
		return Schema{}, fmt.Errorf("read schema version: %w", err)
	}

	return Schema{Version: uint(version), Dirty: dirty, Migrated: true}, nil
}
