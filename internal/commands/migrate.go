package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trogers1052/market-returns/internal/database"
)

var (
	migrationPath string
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration management",
	Long: `Manage the price_data_daily schema.

Examples:
  returns migrate up      # Run all pending migrations
  returns migrate down    # Rollback last migration`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Run pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations(cmd, false)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Rollback the last migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations(cmd, true)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateCmd.PersistentFlags().StringVarP(&migrationPath, "path", "p", "", "Path to migration files (default: DB_MIGRATIONS_PATH)")
}

func runMigrations(cmd *cobra.Command, down bool) error {
	cfg, log, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	path := cfg.Database.MigrationsPath
	if migrationPath != "" {
		path = migrationPath
	}

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(path, down); err != nil {
		return err
	}

	direction := "up"
	if down {
		direction = "down"
	}
	log.WithField("path", path).Infof("Migrations %s complete", direction)
	return nil
}
