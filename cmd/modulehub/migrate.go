package main

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/splax/modulehub/internal/app/migrate"
	"github.com/splax/modulehub/pkg/config"
	"github.com/splax/modulehub/pkg/logger"
)

var (
	migrateTimeout time.Duration
	migrateTarget  int64
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Run: func(cmd *cobra.Command, args []string) {
		runMigration("up", func(ctx context.Context, r migrate.Runner) error { return r.Ensure(ctx) })
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display status of each migration",
	Run: func(cmd *cobra.Command, args []string) {
		runMigration("status", func(ctx context.Context, r migrate.Runner) error { return r.Status(ctx) })
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	Long:  "Roll back the latest migration by default.\nIf --target is provided, roll back to that version.",
	Run: func(cmd *cobra.Command, args []string) {
		runMigration("down", func(ctx context.Context, r migrate.Runner) error { return r.Down(ctx, migrateTarget) })
	},
}

func init() {
	migrateCmd.PersistentFlags().DurationVar(&migrateTimeout, "timeout", time.Minute, "command timeout")
	migrateDownCmd.Flags().Int64Var(&migrateTarget, "target", 0, "target version (optional)")
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd, migrateDownCmd)
}

func runMigration(command string, fn func(context.Context, migrate.Runner) error) {
	cfg := config.LoadAPIConfig()
	log := logger.New("migrate", logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to configure migration runner", "error", err)
		os.Exit(1)
	}
	defer runner.Close()

	if err := fn(ctx, runner); err != nil {
		log.Error("migration command failed", "command", command, "error", err)
		os.Exit(1)
	}
	log.Info("migration command completed", "command", command)
}
