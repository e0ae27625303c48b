package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/draftbridge-backend/internal/data/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long:  `Applies the schema and pipeline indexes to the database named by DB_DRIVER and POSTGRES_* or SQLITE_DSN.`,
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	svc, err := db.NewPostgresService(log, db.ConfigFromEnv(log))
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.AutoMigrateAll(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	cmd.Printf("%s schema is current (driver=%s)\n", success("ok:"), svc.Driver())
	return nil
}
