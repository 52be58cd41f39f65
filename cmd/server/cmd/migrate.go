package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/spf13/cobra"

	"github.com/gekko-logistics/waybills-server/internal/config"
	"github.com/gekko-logistics/waybills-server/internal/storage/postgres"
)

var (
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Apply or roll back the schema migrations, including the River job
queue schema. Reads DATABASE_URL from the environment.`,
	}

	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if err := postgres.MigrateUp(cfg.Database.URL, migrationsPath); err != nil {
				return err
			}
			return migrateRiverUp(cfg.Database.URL)
		},
	}

	migrateDownCmd = &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			return postgres.MigrateDown(cfg.Database.URL, migrationsPath, migrateSteps)
		},
	}

	migrationsPath string
	migrateSteps   int
)

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrationsPath, "path", postgres.DefaultMigrationsPath, "migrations directory")
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

// migrateRiverUp brings the River job queue schema up to date.
func migrateRiverUp(databaseURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("river migrations: %w", err)
	}
	return nil
}
