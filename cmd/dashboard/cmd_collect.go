package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	db "siot-dashboard/internal/db"
	"siot-dashboard/internal/metrics"
	"siot-dashboard/internal/migrate"
	telemetry "siot-dashboard/internal/modules/telemetry"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Record one weather_data reading and exit",
	Long: `Fetch current conditions for COLLECTOR_CITY and both soil nodes, then
store a single reading. Requires COLLECTOR_API_KEY.`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	if !cfg.CollectorEnabled() {
		return errors.New("COLLECTOR_API_KEY is not set")
	}

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close(dbConn)

	if _, err := migrate.Run(cmd.Context(), dbConn); err != nil {
		return err
	}

	c, err := telemetry.NewFeature(dbConn, cfg, metrics.New(), logger).NewCollector()
	if err != nil {
		return err
	}
	reading, err := c.Collect(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored reading %s at %s\n", reading.ID, reading.Time().Format("2006-01-02 15:04:05"))
	return nil
}
