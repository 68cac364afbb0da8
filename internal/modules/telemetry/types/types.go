package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Reading is one weather_data document. Scalar fields are optional: the
// collector stores a bare timestamp/datetime document when the weather
// provider has no station data.
type Reading struct {
	ID                   string    `json:"id"`
	Timestamp            float64   `json:"timestamp"`
	DateTime             time.Time `json:"datetime"`
	Temp                 *float64  `json:"temp,omitempty"`
	Humidity             *float64  `json:"humidity,omitempty"`
	Wind                 *float64  `json:"wind,omitempty"`
	Rain1h               *float64  `json:"rain_1h,omitempty"`
	Cloud                *float64  `json:"cloud,omitempty"`
	LocalSoilTemperature *float64  `json:"local_soil_temperature,omitempty"`
	LocalSoilHumidity    *float64  `json:"local_soil_humidity,omitempty"`
	IsTest               bool      `json:"is_test"`
	Source               string    `json:"source,omitempty"`
}

// Time returns the calendar date-time of the reading, falling back to the
// numeric timestamp when no datetime was stored.
func (r Reading) Time() time.Time {
	if !r.DateTime.IsZero() {
		return r.DateTime.UTC()
	}
	return TimestampToTime(r.Timestamp)
}

// TimestampToTime converts float seconds since the epoch to UTC.
func TimestampToTime(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
}

// TimeToTimestamp is the inverse of TimestampToTime.
func TimeToTimestamp(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// Series holds one quantity's values in fetch order. Missing values are NaN
// and encode as JSON null.
type Series []float64

func (s Series) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(s))
	for i := range s {
		if !math.IsNaN(s[i]) && !math.IsInf(s[i], 0) {
			out[i] = &s[i]
		}
	}
	return json.Marshal(out)
}

func (s *Series) UnmarshalJSON(b []byte) error {
	var in []*float64
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	out := make(Series, len(in))
	for i, v := range in {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*s = out
	return nil
}

// Valid reports how many entries are not NaN.
func (s Series) Valid() int {
	n := 0
	for _, v := range s {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// ValueOrNaN flattens an optional scalar into a Series entry.
func ValueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

var ErrMisaligned = errors.New("telemetry series misaligned")

// Telemetry is the Loader's result: nine sequences sharing one index, so
// entry i of every field comes from the same Reading.
type Telemetry struct {
	Temperatures     Series      `json:"temperatures"`
	Humidities       Series      `json:"humidities"`
	Winds            Series      `json:"winds"`
	Precipitations   Series      `json:"precipitations"`
	Clouds           Series      `json:"clouds"`
	SoilTemperatures Series      `json:"soil_temperatures"`
	SoilHumidities   Series      `json:"soil_humidities"`
	Timestamps       []float64   `json:"timestamps"`
	DateTimes        []time.Time `json:"datetimes"`
}

// NewTelemetry returns empty sequences with room for n readings.
func NewTelemetry(n int) Telemetry {
	return Telemetry{
		Temperatures:     make(Series, 0, n),
		Humidities:       make(Series, 0, n),
		Winds:            make(Series, 0, n),
		Precipitations:   make(Series, 0, n),
		Clouds:           make(Series, 0, n),
		SoilTemperatures: make(Series, 0, n),
		SoilHumidities:   make(Series, 0, n),
		Timestamps:       make([]float64, 0, n),
		DateTimes:        make([]time.Time, 0, n),
	}
}

// Append adds one reading to every sequence.
func (t *Telemetry) Append(r Reading) {
	t.Timestamps = append(t.Timestamps, r.Timestamp)
	t.DateTimes = append(t.DateTimes, r.Time())
	t.Temperatures = append(t.Temperatures, ValueOrNaN(r.Temp))
	t.Humidities = append(t.Humidities, ValueOrNaN(r.Humidity))
	t.Winds = append(t.Winds, ValueOrNaN(r.Wind))
	t.Precipitations = append(t.Precipitations, ValueOrNaN(r.Rain1h))
	t.Clouds = append(t.Clouds, ValueOrNaN(r.Cloud))
	t.SoilTemperatures = append(t.SoilTemperatures, ValueOrNaN(r.LocalSoilTemperature))
	t.SoilHumidities = append(t.SoilHumidities, ValueOrNaN(r.LocalSoilHumidity))
}

// Len is the number of readings, taken from the shared datetime sequence.
func (t Telemetry) Len() int {
	return len(t.DateTimes)
}

// Validate checks that all nine sequences have the same length.
func (t Telemetry) Validate() error {
	want := len(t.DateTimes)
	lens := map[string]int{
		"temperatures":      len(t.Temperatures),
		"humidities":        len(t.Humidities),
		"winds":             len(t.Winds),
		"precipitations":    len(t.Precipitations),
		"clouds":            len(t.Clouds),
		"soil_temperatures": len(t.SoilTemperatures),
		"soil_humidities":   len(t.SoilHumidities),
		"timestamps":        len(t.Timestamps),
	}
	for name, n := range lens {
		if n != want {
			return fmt.Errorf("%w: %s has %d entries, datetimes has %d", ErrMisaligned, name, n, want)
		}
	}
	return nil
}
