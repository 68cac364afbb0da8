package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	loadDuration      prometheus.Histogram
	loadReadings      prometheus.Gauge
	loadErrors        prometheus.Counter
	chartsTotal       *prometheus.CounterVec
	gaugePolls        *prometheus.CounterVec
	collectorRuns     *prometheus.CounterVec
	readingsIngested  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "telemetry_load_duration_seconds",
			Help:    "Histogram of telemetry store query durations.",
			Buckets: prometheus.DefBuckets,
		}),
		loadReadings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "telemetry_load_readings",
			Help: "Number of readings returned by the last successful load.",
		}),
		loadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_load_errors_total",
			Help: "Total telemetry loads that failed.",
		}),
		chartsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "charts_rendered_total",
			Help: "Total charts drawn by container and result.",
		}, []string{"container", "result"}),
		gaugePolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gauge_endpoint_polls_total",
			Help: "Total gauge endpoint reads by endpoint and result.",
		}, []string{"endpoint", "result"}),
		collectorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_runs_total",
			Help: "Total collector runs by result.",
		}, []string{"result"}),
		readingsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "readings_ingested_total",
			Help: "Total readings offered for storage by source and result.",
		}, []string{"source", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.loadDuration,
		m.loadReadings,
		m.loadErrors,
		m.chartsTotal,
		m.gaugePolls,
		m.collectorRuns,
		m.readingsIngested,
	)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts requests by the ServeMux pattern that served them. It
// must wrap the mux directly so the pattern is visible afterwards.
func (m *Metrics) WrapHandler(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) TelemetryLoaded(readings int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.loadDuration.Observe(duration.Seconds())
	if err != nil {
		m.loadErrors.Inc()
		return
	}
	m.loadReadings.Set(float64(readings))
}

func (m *Metrics) ChartRendered(container string, err error) {
	if m == nil {
		return
	}
	m.chartsTotal.WithLabelValues(container, result(err)).Inc()
}

func (m *Metrics) GaugePolled(endpoint string, err error) {
	if m == nil {
		return
	}
	m.gaugePolls.WithLabelValues(endpoint, result(err)).Inc()
}

func (m *Metrics) CollectorRun(err error) {
	if m == nil {
		return
	}
	m.collectorRuns.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ReadingIngested(source string, err error) {
	if m == nil {
		return
	}
	m.readingsIngested.WithLabelValues(source, result(err)).Inc()
}
