package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"siot-dashboard/internal/modules/telemetry/types"
)

var (
	ErrInvalidLimit     = errors.New("limit must be >= 0")
	ErrStoreUnavailable = errors.New("telemetry store unavailable")
)

// ReadingSource is the part of the repository the loader needs.
type ReadingSource interface {
	LatestReadings(ctx context.Context, limit int) ([]types.Reading, error)
}

// Observer receives the outcome of every load. *metrics.Metrics satisfies it.
type Observer interface {
	TelemetryLoaded(readings int, duration time.Duration, err error)
}

type Loader struct {
	source   ReadingSource
	timeout  time.Duration
	observer Observer
	logger   *slog.Logger
}

type Option func(*Loader)

// WithTimeout bounds each store query; zero means only the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) { l.timeout = d }
}

func WithObserver(o Observer) Option {
	return func(l *Loader) { l.observer = o }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

func New(source ReadingSource, opts ...Option) *Loader {
	l := &Loader{source: source, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches the limit most recent readings, newest first, and splits them
// into the nine aligned sequences of types.Telemetry.
func (l *Loader) Load(ctx context.Context, limit int) (types.Telemetry, error) {
	if limit < 0 {
		return types.Telemetry{}, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	if limit == 0 {
		return types.NewTelemetry(0), nil
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	l.logger.DebugContext(ctx, "loading telemetry", "limit", limit)
	readings, err := l.source.LatestReadings(ctx, limit)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		l.observe(0, time.Since(start), err)
		return types.Telemetry{}, err
	}
	if len(readings) > limit {
		readings = readings[:limit]
	}

	tel := types.NewTelemetry(len(readings))
	for _, r := range readings {
		tel.Append(r)
	}
	if err := tel.Validate(); err != nil {
		l.observe(0, time.Since(start), err)
		return types.Telemetry{}, err
	}

	l.observe(tel.Len(), time.Since(start), nil)
	if tel.Len() < limit {
		l.logger.DebugContext(ctx, "fewer readings than requested", "limit", limit, "readings", tel.Len())
	}
	return tel, nil
}

func (l *Loader) observe(n int, d time.Duration, err error) {
	if l.observer != nil {
		l.observer.TelemetryLoaded(n, d, err)
	}
}
