package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"siot-dashboard/internal/modules/telemetry/endpoint"
	"siot-dashboard/internal/modules/telemetry/types"
)

const (
	// NodeFailureValue is stored for a soil node that could not be read. It is
	// far outside anything the probes report.
	NodeFailureValue = -50.0

	kelvinOffset = 273.15
	sourceName   = "collector"
)

var ErrMissingAPIKey = errors.New("collector api key is required")

// Store is the part of the repository the collector writes to.
type Store interface {
	InsertReading(ctx context.Context, reading types.Reading) (types.Reading, error)
}

// Observer receives the outcome of every collection run.
type Observer interface {
	CollectorRun(err error)
}

type Config struct {
	APIKey          string
	City            string
	WeatherURL      string
	SoilTempURL     string
	SoilHumidityURL string
	Interval        time.Duration
	// Timeout bounds one whole run.
	Timeout         time.Duration
	IsTest          bool
}

type Collector struct {
	store    Store
	cfg      Config
	client   *endpoint.Client
	now      func() time.Time
	observer Observer
	logger   *slog.Logger
}

type Option func(*Collector)

func WithClient(c *endpoint.Client) Option {
	return func(col *Collector) { col.client = c }
}

func WithClock(now func() time.Time) Option {
	return func(col *Collector) { col.now = now }
}

func WithObserver(o Observer) Option {
	return func(col *Collector) { col.observer = o }
}

func WithLogger(logger *slog.Logger) Option {
	return func(col *Collector) { col.logger = logger }
}

func New(store Store, cfg Config, opts ...Option) (*Collector, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := &Collector{
		store:  store,
		cfg:    cfg,
		client: endpoint.NewClient(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run collects once immediately and then every interval until ctx is done.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	c.logger.Info("collector started", "interval", c.cfg.Interval, "city", c.cfg.City)
	c.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("collector stopped")
			return
		case <-ticker.C:
			c.runOnce(ctx)
		}
	}
}

func (c *Collector) runOnce(ctx context.Context) {
	// errors are logged inside Collect
	_, _ = c.Collect(ctx)
}

// Collect performs one run: current conditions plus both soil nodes, stored
// as a single reading.
func (c *Collector) Collect(ctx context.Context) (types.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	c.logger.InfoContext(ctx, "running collection")
	reading, err := c.collect(ctx)
	if err == nil {
		reading, err = c.store.InsertReading(ctx, reading)
		if err != nil {
			err = fmt.Errorf("store reading: %w", err)
		}
	}
	if c.observer != nil {
		c.observer.CollectorRun(err)
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "collection failed", "error", err)
		return types.Reading{}, err
	}
	c.logger.InfoContext(ctx, "collected reading", "id", reading.ID, "bare", reading.Temp == nil)
	return reading, nil
}

type weatherResponse struct {
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Clouds struct {
		All *float64 `json:"all"`
	} `json:"clouds"`
	Wind struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Rain struct {
		OneHour *float64 `json:"1h"`
	} `json:"rain"`
}

func (c *Collector) weatherURL() (string, error) {
	u, err := url.Parse(c.cfg.WeatherURL)
	if err != nil {
		return "", fmt.Errorf("parse weather url: %w", err)
	}
	q := u.Query()
	q.Set("q", c.cfg.City)
	q.Set("appid", c.cfg.APIKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Collector) collect(ctx context.Context) (types.Reading, error) {
	weatherURL, err := c.weatherURL()
	if err != nil {
		return types.Reading{}, err
	}
	var weather weatherResponse
	if err := c.client.GetJSON(ctx, weatherURL, &weather); err != nil {
		return types.Reading{}, fmt.Errorf("weather api: %w", err)
	}

	now := c.now().UTC()
	reading := types.Reading{
		Timestamp: types.TimeToTimestamp(now),
		DateTime:  now,
		Source:    sourceName,
	}
	if weather.Main == nil {
		c.logger.WarnContext(ctx, "weather api returned no station data")
		return reading, nil
	}

	var soilTemp, soilHumidity float64
	var g errgroup.Group
	g.Go(func() error {
		soilTemp = c.node(ctx, "soil_temperature", c.cfg.SoilTempURL)
		return nil
	})
	g.Go(func() error {
		soilHumidity = c.node(ctx, "soil_humidity", c.cfg.SoilHumidityURL)
		return nil
	})
	_ = g.Wait()

	if t := weather.Main.Temp; t != nil {
		celsius := *t - kelvinOffset
		reading.Temp = &celsius
	}
	reading.Humidity = orZero(weather.Main.Humidity)
	reading.Cloud = orZero(weather.Clouds.All)
	reading.Wind = orZero(weather.Wind.Speed)
	reading.Rain1h = orZero(weather.Rain.OneHour)
	reading.LocalSoilTemperature = &soilTemp
	reading.LocalSoilHumidity = &soilHumidity
	reading.IsTest = c.cfg.IsTest
	return reading, nil
}

// node reads one soil probe, substituting NodeFailureValue on any failure.
func (c *Collector) node(ctx context.Context, name, url string) float64 {
	v, err := c.client.Value(ctx, url)
	if err != nil {
		c.logger.ErrorContext(ctx, "soil node unavailable", "node", name, "error", err)
		return NodeFailureValue
	}
	return v
}

func orZero(v *float64) *float64 {
	out := 0.0
	if v != nil {
		out = *v
	}
	return &out
}
