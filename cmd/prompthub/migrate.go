package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/prompthub/internal/migrations"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the relational schema",
		Long: `Apply the embedded schema to the configured database. The connection
comes from [database] or PROMPTHUB_DB_DSN.`,
	}

	withMigrator := func(fn func(m *migrations.Migrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			m, err := migrations.New(a.cfg.Database.Dsn(), a.infra.Logger)
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(m, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(m *migrations.Migrator, _ []string) error {
				return m.Up()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(m *migrations.Migrator, _ []string) error {
				return m.Down()
			}),
		},
		&cobra.Command{
			Use:   "steps <n>",
			Short: "Apply n migrations, or revert when n is negative",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(m *migrations.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return err
				}
				return m.Steps(n)
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Record a version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(m *migrations.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return err
				}
				return m.Force(v)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(m *migrations.Migrator, _ []string) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if a.asJSON {
					return a.printJSON(map[string]any{"version": v, "dirty": dirty})
				}
				a.printf("version: %d, dirty: %v\n", v, dirty)
				return nil
			}),
		},
	)
	return cmd
}
