package gauge

import (
	"math"
	"strconv"
	"time"

	"siot-dashboard/internal/modules/telemetry/types"
)

const (
	// Placeholder is shown for any value that depends on a failed endpoint.
	Placeholder = "n/a"
	// NeutralAngle leaves the gauge needle upright.
	NeutralAngle = 90.0

	waterMidpoint = 500.0
)

// Measurement is the outcome of reading one scalar endpoint.
type Measurement struct {
	Value float64
	Err   error
}

func (m Measurement) ok() bool { return m.Err == nil }

// Display holds the strings written into the page, keyed by element id.
type Display struct {
	BiasPct    string `json:"bias_pct"`
	BiasDec    string `json:"bias_dec"`
	BiasML     string `json:"bias_ml"`
	STemp      string `json:"s_temp"`
	Hrs        string `json:"hrs"`
	Days       string `json:"days"`
	PredAlive  string `json:"pred_alive"`
	ProbeAlive string `json:"probe_alive"`
	// MaskTransform is the CSS transform of the gauge mask.
	MaskTransform string `json:"mask_transform"`
}

// GaugeState is computed fresh on every poll. Pointer fields are nil when the
// endpoint they depend on failed.
type GaugeState struct {
	Water           *float64  `json:"water"`
	WaterBias       *float64  `json:"water_bias"`
	BiasPercent     *float64  `json:"bias_percent"`
	GaugeAngle      float64   `json:"gauge_angle"`
	SoilTemperature *float64  `json:"soil_temperature"`
	ElapsedHours    int64     `json:"elapsed_hours"`
	ElapsedDays     int64     `json:"elapsed_days"`
	WaterAlive      bool      `json:"water_alive"`
	ProbeAlive      bool      `json:"probe_alive"`
	PolledAt        time.Time `json:"polled_at"`
	Display         Display   `json:"display"`
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// WaterBias maps a water volume onto -1..1 around the 500ml midpoint.
func WaterBias(water float64) float64 {
	return round3((water - waterMidpoint) / waterMidpoint)
}

func BiasPercent(bias float64) float64 {
	return math.Round(bias*1000) / 10
}

// GaugeAngle rotates the needle from 0deg (bias -1) to 180deg (bias +1).
func GaugeAngle(bias float64) float64 {
	return round3(bias*90 + 90)
}

// Elapsed returns whole hours and whole days between start (epoch seconds)
// and now, both rounded down.
func Elapsed(now time.Time, start float64) (hours, days int64) {
	h := math.Floor((types.TimeToTimestamp(now) - start) / 3600)
	d := math.Floor(h / 24)
	return int64(h), int64(d)
}

// Derive builds the gauge state from the two endpoint readings.
func Derive(water, soil Measurement, now time.Time, start float64) GaugeState {
	hours, days := Elapsed(now, start)
	s := GaugeState{
		GaugeAngle:   NeutralAngle,
		ElapsedHours: hours,
		ElapsedDays:  days,
		WaterAlive:   water.ok(),
		ProbeAlive:   soil.ok(),
		PolledAt:     now.UTC(),
		Display: Display{
			BiasPct:    Placeholder,
			BiasDec:    Placeholder,
			BiasML:     Placeholder,
			STemp:      Placeholder,
			Hrs:        strconv.FormatInt(hours, 10),
			Days:       strconv.FormatInt(days, 10),
			PredAlive:  yesNo(water.ok()),
			ProbeAlive: yesNo(soil.ok()),
		},
	}

	if water.ok() {
		v := water.Value
		bias := WaterBias(v)
		pct := BiasPercent(bias)
		s.Water, s.WaterBias, s.BiasPercent = &v, &bias, &pct
		s.GaugeAngle = GaugeAngle(bias)
		s.Display.BiasPct = signed(pct) + "%"
		s.Display.BiasDec = signed(bias)
		s.Display.BiasML = formatFloat(math.Round(v)) + "ml"
	}
	if soil.ok() {
		v := soil.Value
		s.SoilTemperature = &v
		s.Display.STemp = formatFloat(v) + "ºC"
	}
	s.Display.MaskTransform = "rotate(" + formatFloat(s.GaugeAngle) + "deg)"
	return s
}

// formatFloat prints v in plain decimal, never in exponent form.
func formatFloat(v float64) string {
	if v == 0 {
		v = 0 // drop the sign of negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// signed always carries a sign: "+46.6", "-0.4", "+0".
func signed(v float64) string {
	s := formatFloat(v)
	if v >= 0 {
		return "+" + s
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
