package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/backstage/services/challan/internal/db"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Runs database migrations to ensure the database schema
is up-to-date. This is useful for CI/CD pipelines or initial setup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

// runMigration executes the database migrations
func runMigration() error {
	log.Info().Msg("Connecting to database...")
	conn, err := db.Connect(cfg.Database, nil)
	if err != nil {
		return err
	}
	defer db.Close(conn)

	log.Info().Msg("Running database migrations...")
	if err := db.Migrate(conn); err != nil {
		return err
	}

	log.Info().Msg("Database migrations completed successfully")
	return nil
}
