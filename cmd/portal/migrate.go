// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/portal/internal/config"
	"github.com/holomush/portal/internal/store"
)

// schemaMigrator is the migrator surface the migrate commands drive.
type schemaMigrator interface {
	Up() error
	Down() error
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

// schemaMigratorFactory is replaced in tests.
var schemaMigratorFactory = func(url string) (schemaMigrator, error) {
	return store.NewMigrator(url)
}

// NewMigrateCmd creates the migrate command and its subcommands. Without a
// subcommand it applies pending migrations.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Apply, revert or inspect the users and sessions schema in the
PostgreSQL database. Without a subcommand, all pending migrations are applied.`,
		RunE: runMigrateUp,
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL (overrides config and DATABASE_URL)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrateUp,
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Revert all migrations, dropping every portal table",
		Args:  cobra.NoArgs,
		RunE:  runMigrateDown,
	}
	down.Flags().Bool("yes", false, "confirm that all data may be dropped")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrateStatus,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Set the recorded schema version and clear the dirty flag. Use this
only to recover from a failed migration after fixing the schema by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: runMigrateForce,
	})

	return cmd
}

// databaseURL resolves the connection URL from the --database-url flag,
// then the config file, then DATABASE_URL.
func databaseURL(cmd *cobra.Command) (string, error) {
	if url, _ := cmd.Flags().GetString("database-url"); url != "" { //nolint:errcheck // flag is registered on the parent
		return url, nil
	}
	cfg, err := config.Load(config.LoadOptions{File: configFile})
	if err != nil {
		return "", err
	}
	if cfg.Store.URL == "" {
		return "", oops.Code("CONFIG_INVALID").
			With("key", "store.url").
			Errorf("database URL is required: set store.url, --database-url or %s", config.EnvDatabaseURL)
	}
	return cfg.Store.URL, nil
}

func openMigrator(cmd *cobra.Command) (schemaMigrator, error) {
	url, err := databaseURL(cmd)
	if err != nil {
		return nil, err
	}
	m, err := schemaMigratorFactory(url)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	return m, nil
}

func closeMigrator(cmd *cobra.Command, m schemaMigrator) {
	if err := m.Close(); err != nil {
		cmd.PrintErrf("warning: failed to close migrator: %v\n", err)
	}
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	m, err := openMigrator(cmd)
	if err != nil {
		return err
	}
	defer closeMigrator(cmd, m)

	cmd.Println("Running migrations...")
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "migrate up").Wrap(err)
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	yes, _ := cmd.Flags().GetBool("yes") //nolint:errcheck // flag registered above
	if !yes {
		return oops.Code("CONFIRMATION_REQUIRED").Errorf("migrate down drops all users and sessions; rerun with --yes")
	}

	m, err := openMigrator(cmd)
	if err != nil {
		return err
	}
	defer closeMigrator(cmd, m)

	cmd.Println("Reverting migrations...")
	if err := m.Down(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "migrate down").Wrap(err)
	}
	cmd.Println("All migrations reverted")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	m, err := openMigrator(cmd)
	if err != nil {
		return err
	}
	defer closeMigrator(cmd, m)

	st, err := m.Status()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "migrate status").Wrap(err)
	}
	printStatus(cmd, st)
	return nil
}

func printStatus(cmd *cobra.Command, st store.Status) {
	dirty := ""
	if st.Dirty {
		dirty = " (dirty)"
	}
	cmd.Printf("Current version: %d%s\n", st.Version, dirty)

	line := func(state string, v uint) {
		name, err := store.MigrationName(v)
		if err != nil || name == "" {
			name = fmt.Sprintf("%06d", v)
		}
		cmd.Printf("  [%s] %s\n", state, name)
	}
	for _, v := range st.Applied {
		line("applied", v)
	}
	for _, v := range st.Pending {
		line("pending", v)
	}
	if len(st.Pending) == 0 {
		cmd.Println("Database is up to date")
	}
}

func runMigrateForce(cmd *cobra.Command, args []string) error {
	version, err := parseForceVersion(args[0])
	if err != nil {
		return err
	}

	m, err := openMigrator(cmd)
	if err != nil {
		return err
	}
	defer closeMigrator(cmd, m)

	if err := m.Force(version); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "migrate force").With("version", version).Wrap(err)
	}
	cmd.Printf("Schema version forced to %d\n", version)
	return nil
}

// parseForceVersion reads a leading integer from s.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(s, "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrap(err)
	}
	return version, nil
}
