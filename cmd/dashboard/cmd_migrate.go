package main

import (
	"fmt"

	"github.com/spf13/cobra"

	db "siot-dashboard/internal/db"
	"siot-dashboard/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close(dbConn)

	n, err := migrate.Run(cmd.Context(), dbConn)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s) to %s\n", n, cfg.SQLitePath)
	return nil
}
