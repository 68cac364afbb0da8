package telemetry

import (
	"database/sql"
	"log/slog"
	"net/http"

	"siot-dashboard/internal/config"
	"siot-dashboard/internal/metrics"
	"siot-dashboard/internal/modules/telemetry/charts"
	"siot-dashboard/internal/modules/telemetry/collector"
	"siot-dashboard/internal/modules/telemetry/controller"
	"siot-dashboard/internal/modules/telemetry/endpoint"
	"siot-dashboard/internal/modules/telemetry/gauge"
	"siot-dashboard/internal/modules/telemetry/loader"
	"siot-dashboard/internal/modules/telemetry/repository"
	"siot-dashboard/internal/modules/telemetry/service"
	"siot-dashboard/internal/mqtt"
)

// Feature is the telemetry module wired against one database.
type Feature struct {
	cfg        config.Config
	metrics    *metrics.Metrics
	logger     *slog.Logger
	repository repository.TelemetryRepository
	service    *service.Service
}

func NewFeature(db *sql.DB, cfg config.Config, m *metrics.Metrics, logger *slog.Logger) *Feature {
	if logger == nil {
		logger = slog.Default()
	}
	repo := repository.NewRepository(db)
	return &Feature{
		cfg:        cfg,
		metrics:    m,
		logger:     logger,
		repository: repo,
		service:    service.NewService(repo, m, logger),
	}
}

// RegisterRoutes adds the dashboard, chart, gauge and API routes to mux.
func (f *Feature) RegisterRoutes(mux *http.ServeMux) {
	ctrl := controller.NewTelemetryController(controller.Deps{
		Repository: f.repository,
		Loader: loader.New(f.repository,
			loader.WithTimeout(f.cfg.StoreTimeout),
			loader.WithObserver(f.metrics),
			loader.WithLogger(f.logger),
		),
		Poller: gauge.NewPoller(f.cfg.WaterURL, f.cfg.SoilTempURL,
			gauge.WithTimeout(f.cfg.GaugeTimeout),
			gauge.WithStart(f.cfg.GaugeStartTimestamp),
			gauge.WithObserver(f.metrics),
			gauge.WithLogger(f.logger),
		),
		Renderer: charts.NewRenderer(
			charts.WithObserver(f.metrics),
			charts.WithLogger(f.logger),
		),
		Ingester:  f.service,
		DataLimit: f.cfg.DataLimit,
	})
	ctrl.RegisterRoutes(mux)
}

// RegisterMQTT stores every reading received by subscriber.
func (f *Feature) RegisterMQTT(subscriber mqtt.MQTTSubscriber) {
	f.service.Register(subscriber)
}

// NewCollector builds the periodic collector from configuration.
func (f *Feature) NewCollector() (*collector.Collector, error) {
	return collector.New(f.repository, collector.Config{
		APIKey:          f.cfg.CollectorAPIKey,
		City:            f.cfg.CollectorCity,
		WeatherURL:      f.cfg.CollectorWeatherURL,
		SoilTempURL:     f.cfg.CollectorSoilTempURL,
		SoilHumidityURL: f.cfg.CollectorSoilHumidityURL,
		Interval:        f.cfg.CollectorInterval,
		Timeout:         f.cfg.CollectorTimeout,
		IsTest:          f.cfg.CollectorIsTest,
	},
		collector.WithClient(endpoint.NewClient(
			endpoint.WithTimeout(f.cfg.CollectorTimeout),
			endpoint.WithUserAgent("siot-dashboard-collector"),
		)),
		collector.WithObserver(f.metrics),
		collector.WithLogger(f.logger),
	)
}
