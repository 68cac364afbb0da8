package views

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"siot-dashboard/internal/modules/telemetry/gauge"
)

func TestLoadTemplates_success(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates() = %v; want nil", err)
	}
	if dashboardTmpl == nil {
		t.Fatal("LoadTemplates() left dashboardTmpl nil")
	}
}

func TestLoadTemplates_failure(t *testing.T) {
	prev := dashboardTmpl
	t.Cleanup(func() { dashboardTmpl = prev })

	t.Run("missing dir", func(t *testing.T) {
		if err := loadTemplatesFromFS(fstest.MapFS{}, "templates"); err == nil {
			t.Fatal("loadTemplatesFromFS(empty) = nil; want error")
		}
	})

	t.Run("bad syntax", func(t *testing.T) {
		badFS := fstest.MapFS{
			"templates/dashboard.html":      {Data: []byte("{{ .")},
			"templates/partials/gauge.html": {Data: []byte("ok")},
		}
		if err := loadTemplatesFromFS(badFS, "templates"); err == nil {
			t.Fatal("loadTemplatesFromFS(bad) = nil; want error")
		}
	})
}

func TestRender_notLoaded(t *testing.T) {
	prev := dashboardTmpl
	dashboardTmpl = nil
	t.Cleanup(func() { dashboardTmpl = prev })

	if err := RenderDashboard(&bytes.Buffer{}, &DashboardData{}); !errors.Is(err, errNotLoaded) {
		t.Errorf("RenderDashboard() = %v; want errNotLoaded", err)
	}
	if err := RenderGaugePartial(&bytes.Buffer{}, &gauge.GaugeState{}); !errors.Is(err, errNotLoaded) {
		t.Errorf("RenderGaugePartial() = %v; want errNotLoaded", err)
	}
}

func sampleGauge() gauge.GaugeState {
	now := time.Unix(1603119000+30*3600, 0)
	return gauge.Derive(gauge.Measurement{Value: 733}, gauge.Measurement{Value: 3.5}, now, 1603119000)
}

func TestRenderDashboard(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}

	data := &DashboardData{
		Charts: []ChartView{
			{Container: "temp_chart", Title: "Air Temperature", SVG: `<svg id="t"></svg>`},
			{Container: "rain_chart", Title: "Precipitation", SVG: `<svg id="r"></svg>`, Empty: true},
			{Container: "cloud_chart", Title: "Cloud cover", Failed: true},
		},
		Gauge:       sampleGauge(),
		Readings:    2,
		Limit:       240,
		Stored:      1314,
		GeneratedAt: time.Date(2020, 11, 2, 12, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	if err := RenderDashboard(&buf, data); err != nil {
		t.Fatalf("RenderDashboard() = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`<!DOCTYPE html>`,
		`id="temp_chart"`,
		`<svg id="t"></svg>`,
		`Precipitation: no data`,
		`Cloud cover: chart could not be drawn`,
		`id="bias_pct">&#43;46.6%<`,
		`id="bias_dec">&#43;0.466<`,
		`id="bias_ml"`,
		`733ml`,
		`3.5ºC`,
		`id="hrs">30<`,
		`id="days">1<`,
		`id="pred_alive"`,
		`transform: rotate(131.94deg)`,
		`transform-origin: right center`,
		`2020-11-02 12:00:00 UTC`,
		`2 of up to 240 readings (1314 stored)`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	if strings.Contains(out, "data_unavailable") {
		t.Error("banner shown while data is available")
	}
	if strings.Contains(out, "ZgotmplZ") {
		t.Error("template escaped a value to ZgotmplZ")
	}
}

func TestRenderDashboard_dataUnavailable(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}
	var buf bytes.Buffer
	err := RenderDashboard(&buf, &DashboardData{DataUnavailable: true, Gauge: sampleGauge()})
	if err != nil {
		t.Fatalf("RenderDashboard() = %v", err)
	}
	if !strings.Contains(buf.String(), `id="data_unavailable"`) {
		t.Error("data unavailable banner missing")
	}
}

func TestRenderGaugePartial_placeholders(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}
	down := errors.New("down")
	state := gauge.Derive(gauge.Measurement{Err: down}, gauge.Measurement{Err: down}, time.Now(), 1603119000)

	var buf bytes.Buffer
	if err := RenderGaugePartial(&buf, &state); err != nil {
		t.Fatalf("RenderGaugePartial() = %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "<html") {
		t.Error("partial rendered the full page")
	}
	for _, want := range []string{`id="bias_pct">n/a<`, `id="s_temp"`, `id="probe_alive"`, `rotate(90deg)`} {
		if !strings.Contains(out, want) {
			t.Errorf("partial missing %q", want)
		}
	}
	if got := strings.Count(out, ">No<"); got != 2 {
		t.Errorf("found %d \"No\" cells; want 2", got)
	}
}
