package main

import (
	"github.com/spf13/cobra"

	"siot-dashboard/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the HTTP dashboard. MQTT ingestion starts when MQTT_BROKER is set
and the hourly collector when COLLECTOR_API_KEY is set.`,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides HTTP_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.HTTPAddr = serveAddr
	}
	logger.Info("starting",
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)
	err := app.Run(cmd.Context(), cfg, logger)
	logger.Info("shutting down")
	return err
}
