package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"siot-dashboard/internal/config"
	"siot-dashboard/internal/logging"
)

const appName = "siot-dashboard"

// Default version is "dev" if not set with -ldflags "-X main.version=..."
var version = "dev"

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "SIoT dashboard - weather and soil telemetry charts",
	Long: `The SIoT dashboard charts the most recent weather_data readings and
shows the live water bias gauge. It can also run the collector that
records those readings and apply the database migrations.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFromEnv()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		logger = logging.New(cfg, version, appName)
		slog.SetDefault(logger)
		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		if logger != nil {
			logger.Error("run failed", "err", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}
