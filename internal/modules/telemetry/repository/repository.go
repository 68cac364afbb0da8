package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"siot-dashboard/internal/modules/telemetry/types"
)

//go:embed sql/get-latest-readings.sql
var getLatestReadingsSQL string

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/get-readings-count.sql
var getReadingsCountSQL string

var ErrInvalidReading = errors.New("invalid reading")

type TelemetryRepository interface {
	// LatestReadings returns up to limit readings, newest timestamp first.
	LatestReadings(ctx context.Context, limit int) ([]types.Reading, error)
	InsertReading(ctx context.Context, reading types.Reading) (types.Reading, error)
	CountReadings(ctx context.Context) (int, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) TelemetryRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) LatestReadings(ctx context.Context, limit int) ([]types.Reading, error) {
	if limit <= 0 {
		return []types.Reading{}, nil
	}
	rows, err := r.db.QueryContext(ctx, getLatestReadingsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close latest readings rows", "error", err)
		}
	}()
	return scanReadings(rows, limit)
}

func (r *repositoryImpl) CountReadings(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, getReadingsCountSQL).Scan(&n)
	return n, err
}

func scanReadings(rows *sql.Rows, capacity int) ([]types.Reading, error) {
	out := make([]types.Reading, 0, capacity)
	for rows.Next() {
		var (
			rec types.Reading
			dt  string
			temp, humidity, wind, rain, cloud,
			soilTemp, soilHumidity sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &dt, &temp, &humidity, &wind, &rain, &cloud,
			&soilTemp, &soilHumidity, &rec.IsTest, &rec.Source); err != nil {
			return nil, err
		}
		t, err := parseDateTime(dt)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rec.ID, err)
		}
		rec.DateTime = t
		rec.Temp = nullable(temp)
		rec.Humidity = nullable(humidity)
		rec.Wind = nullable(wind)
		rec.Rain1h = nullable(rain)
		rec.Cloud = nullable(cloud)
		rec.LocalSoilTemperature = nullable(soilTemp)
		rec.LocalSoilHumidity = nullable(soilHumidity)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func parseDateTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		var err2 error
		t, err2 = time.Parse(time.RFC3339, s)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("parse datetime %q: RFC3339Nano: %w; RFC3339: %w", s, err, err2)
		}
	}
	return t, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func value(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// Validate checks the ranges a stored document must satisfy.
func Validate(reading types.Reading) error {
	if reading.Timestamp <= 0 {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidReading)
	}
	if h := reading.Humidity; h != nil && (*h < 0 || *h > 100) {
		return fmt.Errorf("%w: humidity out of range: %f (must be 0-100)", ErrInvalidReading, *h)
	}
	if c := reading.Cloud; c != nil && (*c < 0 || *c > 100) {
		return fmt.Errorf("%w: cloud out of range: %f (must be 0-100)", ErrInvalidReading, *c)
	}
	if rain := reading.Rain1h; rain != nil && *rain < 0 {
		return fmt.Errorf("%w: rain_1h must not be negative: %f", ErrInvalidReading, *rain)
	}
	return nil
}

// InsertReading validates and stores one document, filling in a missing id
// and datetime. It returns the document as stored.
func (r *repositoryImpl) InsertReading(ctx context.Context, reading types.Reading) (types.Reading, error) {
	if err := Validate(reading); err != nil {
		return types.Reading{}, err
	}
	if reading.ID == "" {
		reading.ID = uuid.NewString()
	}
	reading.DateTime = reading.Time()
	if reading.Source == "" {
		reading.Source = "unknown"
	}

	_, err := r.db.ExecContext(ctx, insertReadingSQL,
		reading.ID,
		reading.Timestamp,
		reading.DateTime.Format(time.RFC3339Nano),
		value(reading.Temp),
		value(reading.Humidity),
		value(reading.Wind),
		value(reading.Rain1h),
		value(reading.Cloud),
		value(reading.LocalSoilTemperature),
		value(reading.LocalSoilHumidity),
		reading.IsTest,
		reading.Source,
	)
	if err != nil {
		return types.Reading{}, fmt.Errorf("insert reading: %w", err)
	}
	return reading, nil
}
