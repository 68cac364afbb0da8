package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"

	"siot-dashboard/internal/config"
	"siot-dashboard/internal/metrics"
)

// NewServer wraps mux with, from the outside in: request logging, panic
// recovery, response compression and per-route metrics.
func NewServer(cfg config.Config, mux *http.ServeMux, m *metrics.Metrics, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)),
		handlers.PrintRecoveryStack(cfg.AppEnv == "dev"),
	)

	var h http.Handler = m.WrapHandler(mux)
	h = handlers.CompressHandler(h)
	h = recovery(h)
	h = requestLogger(logger, h)

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
