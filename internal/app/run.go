package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"siot-dashboard/internal/config"
	db "siot-dashboard/internal/db"
	httpapi "siot-dashboard/internal/httpapi"
	"siot-dashboard/internal/metrics"
	"siot-dashboard/internal/migrate"
	telemetry "siot-dashboard/internal/modules/telemetry"
	telemetryviews "siot-dashboard/internal/modules/telemetry/views"
	"siot-dashboard/internal/mqtt"
)

// Run serves the dashboard until ctx is cancelled or the listener fails.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"dataLimit", cfg.DataLimit,
		"waterURL", cfg.WaterURL,
		"soilTempURL", cfg.SoilTempURL,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
		"collectorEnabled", cfg.CollectorEnabled(),
	)

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	applied, err := migrate.Run(ctx, dbConn)
	if err != nil {
		return err
	}
	logger.Info("database ready", "migrationsApplied", applied)

	if err := telemetryviews.LoadTemplates(); err != nil {
		return err
	}

	m := metrics.New()
	mux := httpapi.NewMux(dbConn, m)
	feature := telemetry.NewFeature(dbConn, cfg, m, logger)
	feature.RegisterRoutes(mux)

	// The handler is set before Connect so the subscription made on connect
	// delivers straight into the store.
	var subscriber *mqtt.Subscriber
	if cfg.MQTTEnabled() {
		subscriber, err = mqtt.NewSubscriber(cfg, logger)
		if err != nil {
			return err
		}
		feature.RegisterMQTT(subscriber)

		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			// paho keeps retrying in the background
			logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	var workers sync.WaitGroup
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	if cfg.CollectorEnabled() {
		c, err := feature.NewCollector()
		if err != nil {
			return err
		}
		workers.Add(1)
		go func() {
			defer workers.Done()
			c.Run(workerCtx)
		}()
	}

	srv := httpapi.NewServer(cfg, mux, m, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stopWorkers()
		workers.Wait()
		if subscriber != nil {
			subscriber.Disconnect()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		logger.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	if cfg.CollectorEnabled() {
		logger.Info("collector stopping")
	}
	stopWorkers()
	workers.Wait()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
