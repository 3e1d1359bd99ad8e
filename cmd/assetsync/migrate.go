package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/assetsync/internal/infrastructure/config"
	"github.com/nerrad567/assetsync/internal/infrastructure/database"
)

func newMigrateCmd(configPath func() string) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Manage the local state database schema",
		Long: `Apply, roll back or list migrations of the local state database (tracking
item index and reconciliation log). "serve" applies pending migrations on
startup, so this is only needed for inspection or rollback.

With --db the given SQLite file is used and the config file is not read.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			dbCfg := config.DatabaseConfig{Path: dbPath, WALMode: true, BusyTimeout: 5}
			if dbPath == "" {
				cfg, err := config.Load(configPath())
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				dbCfg = cfg.Database
			}
			return runMigrate(cmd.Context(), cmd.OutOrStdout(), dbCfg, action)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "state database path (skips the config file)")
	return cmd
}

func runMigrate(ctx context.Context, out io.Writer, cfg config.DatabaseConfig, action string) error {
	db, err := database.Open(database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening state database: %w", err)
	}
	defer db.Close()

	switch action {
	case "up":
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		fmt.Fprintln(out, "migrations applied")
	case "down":
		if err := db.MigrateDown(ctx); err != nil {
			return fmt.Errorf("rolling back migration: %w", err)
		}
		fmt.Fprintln(out, "latest migration rolled back")
	case "status":
		applied, pending, err := db.GetMigrationStatus(ctx)
		if err != nil {
			return fmt.Errorf("reading migration status: %w", err)
		}
		for _, m := range applied {
			fmt.Fprintf(out, "applied  %s  %s\n", m.Version, m.AppliedAt.Format(time.RFC3339))
		}
		for _, m := range pending {
			fmt.Fprintf(out, "pending  %s  %s\n", m.Version, m.Name)
		}
	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or status)", action)
	}
	return nil
}
