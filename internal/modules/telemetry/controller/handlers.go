package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"siot-dashboard/internal/modules/telemetry/charts"
	"siot-dashboard/internal/modules/telemetry/gauge"
	"siot-dashboard/internal/modules/telemetry/loader"
	"siot-dashboard/internal/modules/telemetry/repository"
	"siot-dashboard/internal/modules/telemetry/types"
	"siot-dashboard/internal/modules/telemetry/views"
	"siot-dashboard/internal/utils"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeSVG  = "image/svg+xml"
)

// handleDashboard loads telemetry, counts stored readings and polls the gauge
// concurrently, then draws every chart. A store failure still renders the page, with a banner
// and empty charts.
func (c *telemetryControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	var (
		tel     types.Telemetry
		loadErr error
		state   gauge.GaugeState
		stored  int
	)
	var g errgroup.Group
	g.Go(func() error {
		tel, loadErr = c.loader.Load(ctx, c.dataLimit)
		return nil
	})
	g.Go(func() error {
		state = c.poller.Poll(ctx)
		return nil
	})
	g.Go(func() error {
		n, err := c.repository.CountReadings(ctx)
		if err != nil {
			slog.WarnContext(ctx, "dashboard: count readings failed", "error", err)
			return nil
		}
		stored = n
		return nil
	})
	_ = g.Wait()

	if loadErr != nil {
		slog.ErrorContext(ctx, "dashboard: load telemetry failed", "error", loadErr)
		tel = types.NewTelemetry(0)
	}

	rendered := c.renderer.RenderAll(tel)
	chartViews := make([]views.ChartView, 0, len(rendered))
	// the SVG comes from our own renderer, never from user input
	for _, res := range rendered {
		chartViews = append(chartViews, views.ChartView{
			Container: res.Container,
			Title:     res.Title,
			SVG:       template.HTML(res.SVG),
			Empty:     res.Err == nil && res.Points == 0,
			Failed:    res.Err != nil,
		})
	}

	data := views.DashboardData{
		Charts:          chartViews,
		Gauge:           state,
		DataUnavailable: loadErr != nil,
		Readings:        tel.Len(),
		Limit:           c.dataLimit,
		Stored:          stored,
		GeneratedAt:     time.Now().UTC(),
	}
	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, &data); err != nil {
		slog.ErrorContext(ctx, "dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteBody(w, http.StatusOK, contentTypeHTML, buf.Bytes())
}

func (c *telemetryControllerImpl) handleChart(w http.ResponseWriter, r *http.Request) {
	q, ok := charts.QuantityByContainer(r.PathValue("container"))
	if !ok {
		utils.WriteError(w, http.StatusNotFound, "unknown chart container")
		return
	}
	limit, err := parseLimit(r, c.dataLimit, 0)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	tel, err := c.loader.Load(r.Context(), limit)
	if err != nil {
		writeLoadError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := c.renderer.Render(&buf, q.Spec(tel)); err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	utils.WriteBody(w, http.StatusOK, contentTypeSVG, buf.Bytes())
}

func (c *telemetryControllerImpl) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, c.dataLimit, 0)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	tel, err := c.loader.Load(r.Context(), limit)
	if err != nil {
		writeLoadError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, tel)
}

func writeLoadError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, loader.ErrInvalidLimit):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, loader.ErrStoreUnavailable):
		slog.ErrorContext(r.Context(), "telemetry store unavailable", "path", r.URL.Path, "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "telemetry store unavailable")
	default:
		slog.ErrorContext(r.Context(), "load telemetry failed", "path", r.URL.Path, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load telemetry")
	}
}

func (c *telemetryControllerImpl) handleLatestReadings(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, c.dataLimit, 1)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	readings, err := c.repository.LatestReadings(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "latest readings failed", "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "telemetry store unavailable")
		return
	}
	utils.WriteJSON(w, http.StatusOK, readings)
}

func (c *telemetryControllerImpl) handleCreateReading(w http.ResponseWriter, r *http.Request) {
	var reading types.Reading
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReadingBytes)).Decode(&reading); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid reading document: "+err.Error())
		return
	}
	stored, err := c.ingester.Ingest(r.Context(), "api", reading)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidReading) {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "failed to store reading")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, stored)
}

func (c *telemetryControllerImpl) handleGauge(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.poller.Poll(r.Context()))
}

func (c *telemetryControllerImpl) handleGaugePartial(w http.ResponseWriter, r *http.Request) {
	state := c.poller.Poll(r.Context())
	var buf bytes.Buffer
	if err := views.RenderGaugePartial(&buf, &state); err != nil {
		slog.ErrorContext(r.Context(), "gauge partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	utils.WriteBody(w, http.StatusOK, contentTypeHTML, buf.Bytes())
}
