package charts

import (
	"time"

	"siot-dashboard/internal/modules/telemetry/types"
)

type Kind string

const (
	KindLine Kind = "line"
	KindBar  Kind = "bar"
)

// Quantity describes how one measured quantity is charted.
type Quantity struct {
	Name       string
	Title      string
	YAxisLabel string
	Color      string
	Kind       Kind
	Container  string
	values     func(types.Telemetry) types.Series
}

// Quantities lists the dashboard charts in drawing order.
var Quantities = []Quantity{
	{
		Name: "temperature", Title: "Air Temperature", YAxisLabel: "Temperature in ºC",
		Color: "#00FFFF", Kind: KindLine, Container: "temp_chart",
		values: func(t types.Telemetry) types.Series { return t.Temperatures },
	},
	{
		Name: "humidity", Title: "Humidity", YAxisLabel: "Air humidity in %",
		Color: "#00AAFF", Kind: KindLine, Container: "humidity_chart",
		values: func(t types.Telemetry) types.Series { return t.Humidities },
	},
	{
		Name: "wind", Title: "Wind speed", YAxisLabel: "Wind speed in m/s",
		Color: "#AAFFAA", Kind: KindLine, Container: "wind_chart",
		values: func(t types.Telemetry) types.Series { return t.Winds },
	},
	{
		Name: "precipitation", Title: "Precipitation", YAxisLabel: "Rainfall in mm",
		Color: "#FF3333", Kind: KindBar, Container: "rain_chart",
		values: func(t types.Telemetry) types.Series { return t.Precipitations },
	},
	{
		Name: "cloud", Title: "Cloud cover", YAxisLabel: "Cloud coverage in %",
		Color: "#FFFFFF", Kind: KindBar, Container: "cloud_chart",
		values: func(t types.Telemetry) types.Series { return t.Clouds },
	},
	{
		Name: "soil_temperature", Title: "Soil temperature", YAxisLabel: "Temperature in ºC",
		Color: "#FF9966", Kind: KindLine, Container: "soil_temp__chart",
		values: func(t types.Telemetry) types.Series { return t.SoilTemperatures },
	},
	{
		Name: "soil_humidity", Title: "Soil humidity", YAxisLabel: "Humidity (0->3000)",
		Color: "#9933FF", Kind: KindLine, Container: "soil_hmdt_chart",
		values: func(t types.Telemetry) types.Series { return t.SoilHumidities },
	},
}

// QuantityByContainer finds a quantity by its container id or name.
func QuantityByContainer(id string) (Quantity, bool) {
	for _, q := range Quantities {
		if q.Container == id || q.Name == id {
			return q, true
		}
	}
	return Quantity{}, false
}

// ChartSpec is everything needed to draw one chart. It is built per render
// and not kept.
type ChartSpec struct {
	Values     types.Series
	DateTimes  []time.Time
	Kind       Kind
	Title      string
	YAxisLabel string
	Color      string
	Container  string
}

// Spec pairs the quantity's series with the shared datetimes.
func (q Quantity) Spec(tel types.Telemetry) ChartSpec {
	var values types.Series
	if q.values != nil {
		values = q.values(tel)
	}
	return ChartSpec{
		Values:     values,
		DateTimes:  tel.DateTimes,
		Kind:       q.Kind,
		Title:      q.Title,
		YAxisLabel: q.YAxisLabel,
		Color:      q.Color,
		Container:  q.Container,
	}
}
