package cmd

import (
	"github.com/matrixise/wallet-activity/internal/config"
	"github.com/matrixise/wallet-activity/internal/logger"
	"github.com/matrixise/wallet-activity/internal/storage"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
	Long:  `Run, rollback, or check the status of the wallet_transactions migrations.`,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(
		newMigrateCommand(storage.MigrateUp, "Apply all pending migrations", "Migrations applied successfully"),
		newMigrateCommand(storage.MigrateDown, "Rollback the last migration", "Migration rolled back successfully"),
		newMigrateCommand(storage.MigrateStatus, "Show migration status", ""),
	)
}

func newMigrateCommand(direction storage.MigrationDirection, short, done string) *cobra.Command {
	return &cobra.Command{
		Use:   string(direction),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.Setup(logLevel)

			dsn, err := config.DatabaseURL()
			if err != nil {
				return err
			}

			if err := storage.Migrate(cmd.Context(), dsn, direction); err != nil {
				log.Error("Migration failed", "direction", direction, "error", err)
				return err
			}
			if done != "" {
				log.Info(done)
			}
			return nil
		},
	}
}
