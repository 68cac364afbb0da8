package controller

import (
	"context"
	"io"
	"net/http"

	"siot-dashboard/internal/modules/telemetry/charts"
	"siot-dashboard/internal/modules/telemetry/gauge"
	"siot-dashboard/internal/modules/telemetry/repository"
	"siot-dashboard/internal/modules/telemetry/types"
)

type TelemetryController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type TelemetryLoader interface {
	Load(ctx context.Context, limit int) (types.Telemetry, error)
}

type GaugePoller interface {
	Poll(ctx context.Context) gauge.GaugeState
}

type ChartRenderer interface {
	Render(w io.Writer, spec charts.ChartSpec) error
	RenderAll(tel types.Telemetry) []charts.Rendered
}

type ReadingIngester interface {
	Ingest(ctx context.Context, source string, reading types.Reading) (types.Reading, error)
}

// Deps are the collaborators a controller is built from.
type Deps struct {
	Repository repository.TelemetryRepository
	Loader     TelemetryLoader
	Poller     GaugePoller
	Renderer   ChartRenderer
	Ingester   ReadingIngester
	// DataLimit is the number of readings used when a request names none.
	DataLimit int
}

type telemetryControllerImpl struct {
	repository repository.TelemetryRepository
	loader     TelemetryLoader
	poller     GaugePoller
	renderer   ChartRenderer
	ingester   ReadingIngester
	dataLimit  int
}

func NewTelemetryController(deps Deps) TelemetryController {
	return &telemetryControllerImpl{
		repository: deps.Repository,
		loader:     deps.Loader,
		poller:     deps.Poller,
		renderer:   deps.Renderer,
		ingester:   deps.Ingester,
		dataLimit:  deps.DataLimit,
	}
}

func (c *telemetryControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /charts/{container}", c.handleChart)
	mux.HandleFunc("GET /partials/gauge", c.handleGaugePartial)
	mux.HandleFunc("GET /api/v1/telemetry", c.handleTelemetry)
	mux.HandleFunc("GET /api/v1/readings/latest", c.handleLatestReadings)
	mux.HandleFunc("POST /api/v1/readings", c.handleCreateReading)
	mux.HandleFunc("GET /api/v1/gauge", c.handleGauge)
}
