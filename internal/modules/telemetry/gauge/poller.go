package gauge

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"siot-dashboard/internal/modules/telemetry/endpoint"
)

// Observer is told the outcome of every endpoint read.
type Observer interface {
	GaugePolled(endpoint string, err error)
}

type Poller struct {
	client   *endpoint.Client
	waterURL string
	soilURL  string
	timeout  time.Duration
	start    float64
	now      func() time.Time
	observer Observer
	logger   *slog.Logger
}

type Option func(*Poller)

// WithTimeout bounds each endpoint read. Zero leaves only the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(p *Poller) { p.timeout = d }
}

// WithStart sets the epoch seconds elapsed time is counted from.
func WithStart(start float64) Option {
	return func(p *Poller) { p.start = start }
}

func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

func WithHTTPClient(c *http.Client) Option {
	return func(p *Poller) { p.client = endpoint.NewClient(endpoint.WithHTTPClient(c)) }
}

func WithObserver(o Observer) Option {
	return func(p *Poller) { p.observer = o }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

func NewPoller(waterURL, soilURL string, opts ...Option) *Poller {
	p := &Poller{
		client:   endpoint.NewClient(),
		waterURL: waterURL,
		soilURL:  soilURL,
		timeout:  5 * time.Second,
		start:    1603119000.4791155,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll reads both endpoints concurrently and derives the gauge state. It
// never fails: an endpoint that cannot be read leaves placeholders.
func (p *Poller) Poll(ctx context.Context) GaugeState {
	var water, soil Measurement

	var g errgroup.Group
	g.Go(func() error {
		water = p.read(ctx, "water", p.waterURL)
		return nil
	})
	g.Go(func() error {
		soil = p.read(ctx, "soil_temperature", p.soilURL)
		return nil
	})
	_ = g.Wait()

	return Derive(water, soil, p.now(), p.start)
}

func (p *Poller) read(ctx context.Context, name, url string) Measurement {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	v, err := p.client.Value(ctx, url)
	if err != nil {
		p.logger.WarnContext(ctx, "gauge endpoint unavailable", "endpoint", name, "url", url, "error", err)
	}
	if p.observer != nil {
		p.observer.GaugePolled(name, err)
	}
	return Measurement{Value: v, Err: err}
}
