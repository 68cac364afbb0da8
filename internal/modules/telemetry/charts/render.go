package charts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"siot-dashboard/internal/modules/telemetry/types"
)

const (
	DefaultWidth  = 1024
	DefaultHeight = 400

	backgroundHex = "111111"
	fontHex       = "AAAAAA"
	titleHex      = "FFFFFF"
)

// Observer is told about every chart drawn. *metrics.Metrics satisfies it.
type Observer interface {
	ChartRendered(container string, err error)
}

type Renderer struct {
	width    int
	height   int
	now      func() time.Time
	observer Observer
	logger   *slog.Logger
}

type Option func(*Renderer)

func WithSize(width, height int) Option {
	return func(r *Renderer) {
		r.width = width
		r.height = height
	}
}

func WithObserver(o Observer) Option {
	return func(r *Renderer) { r.observer = o }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) { r.logger = logger }
}

// WithClock sets the clock used to place the frame of a chart with no data.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		width:  DefaultWidth,
		height: DefaultHeight,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rendered is the outcome of drawing one quantity.
type Rendered struct {
	Container string
	Title     string
	Kind      Kind
	Points    int
	SVG       []byte
	Err       error
}

// RenderAll draws every quantity in order. A failure is kept on that chart's
// result and does not stop the others.
func (r *Renderer) RenderAll(tel types.Telemetry) []Rendered {
	out := make([]Rendered, 0, len(Quantities))
	for _, q := range Quantities {
		spec := q.Spec(tel)
		var buf bytes.Buffer
		err := r.Render(&buf, spec)
		res := Rendered{
			Container: q.Container,
			Title:     q.Title,
			Kind:      q.Kind,
			Points:    len(points(spec)),
			Err:       err,
		}
		if err == nil {
			res.SVG = buf.Bytes()
		}
		out = append(out, res)
	}
	return out
}

// Render draws spec as SVG into w.
func (r *Renderer) Render(w io.Writer, spec ChartSpec) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("render %s: panic: %v", spec.Container, p)
		}
		if err != nil {
			r.logger.Error("chart render failed", "container", spec.Container, "error", err)
		}
		if r.observer != nil {
			r.observer.ChartRendered(spec.Container, err)
		}
	}()

	c, err := r.build(spec)
	if err != nil {
		return err
	}
	if err := c.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render %s: %w", spec.Container, err)
	}
	return nil
}

type point struct {
	t time.Time
	v float64
}

// points pairs values with datetimes, skipping missing values.
func points(spec ChartSpec) []point {
	n := min(len(spec.Values), len(spec.DateTimes))
	out := make([]point, 0, n)
	for i := 0; i < n; i++ {
		v := spec.Values[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, point{t: spec.DateTimes[i], v: v})
	}
	return out
}

type bounds struct {
	xmin, xmax time.Time
	ymin, ymax float64
}

func (r *Renderer) bounds(spec ChartSpec, pts []point) bounds {
	var b bounds
	if len(spec.DateTimes) == 0 {
		b.xmax = r.now().UTC()
		b.xmin = b.xmax.Add(-time.Hour)
	} else {
		b.xmin, b.xmax = spec.DateTimes[0], spec.DateTimes[0]
		for _, t := range spec.DateTimes[1:] {
			if t.Before(b.xmin) {
				b.xmin = t
			}
			if t.After(b.xmax) {
				b.xmax = t
			}
		}
		// go-chart needs a non-zero x delta
		if !b.xmax.After(b.xmin) {
			b.xmin = b.xmin.Add(-30 * time.Minute)
			b.xmax = b.xmax.Add(30 * time.Minute)
		}
	}

	if len(pts) == 0 {
		b.ymin, b.ymax = 0, 1
		return b
	}
	b.ymin, b.ymax = pts[0].v, pts[0].v
	for _, p := range pts[1:] {
		b.ymin = math.Min(b.ymin, p.v)
		b.ymax = math.Max(b.ymax, p.v)
	}
	if spec.Kind == KindBar {
		b.ymin = math.Min(b.ymin, 0)
		b.ymax = math.Max(b.ymax, 0)
	}
	if b.ymax == b.ymin {
		b.ymin--
		b.ymax++
	}
	pad := (b.ymax - b.ymin) * 0.05
	b.ymax += pad
	if spec.Kind == KindLine {
		b.ymin -= pad
	}
	return b
}

func (r *Renderer) build(spec ChartSpec) (chart.Chart, error) {
	if spec.Kind != KindLine && spec.Kind != KindBar {
		return chart.Chart{}, fmt.Errorf("render %s: unknown chart kind %q", spec.Container, spec.Kind)
	}
	if len(spec.Values) != len(spec.DateTimes) {
		return chart.Chart{}, fmt.Errorf("render %s: %w: %d values for %d datetimes",
			spec.Container, types.ErrMisaligned, len(spec.Values), len(spec.DateTimes))
	}

	trace, err := parseColor(spec.Color)
	if err != nil {
		return chart.Chart{}, fmt.Errorf("render %s: %w", spec.Container, err)
	}
	background := drawing.ColorFromHex(backgroundHex)
	font := drawing.ColorFromHex(fontHex)
	titleColor := drawing.ColorFromHex(titleHex)

	pts := points(spec)
	b := r.bounds(spec, pts)

	// The frame series is invisible and pins the axes to the computed
	// bounds, so a chart with no points still draws.
	series := []chart.Series{
		chart.TimeSeries{
			Name:    "frame",
			XValues: []time.Time{b.xmin, b.xmax},
			YValues: []float64{b.ymin, b.ymax},
			Style: chart.Style{
				StrokeColor: drawing.ColorTransparent,
				StrokeWidth: 1,
			},
		},
	}

	var elements []chart.Renderable
	switch spec.Kind {
	case KindLine:
		if len(pts) > 0 {
			xs := make([]time.Time, len(pts))
			ys := make([]float64, len(pts))
			for i, p := range pts {
				xs[i], ys[i] = p.t, p.v
			}
			series = append(series, chart.TimeSeries{
				Name:    spec.Title,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: trace,
					StrokeWidth: 3,
					DotColor:    trace,
					DotWidth:    3,
				},
			})
		}
	case KindBar:
		elements = append(elements, barElement(pts, b, trace))
	}

	axisStyle := chart.Style{FontColor: font, StrokeColor: font, FontSize: 10}
	nameStyle := chart.Style{FontColor: titleColor, FontSize: 11}

	return chart.Chart{
		Title:      spec.Title,
		TitleStyle: chart.Style{FontColor: titleColor, FontSize: 15},
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{
			FillColor: background,
			Padding:   chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		Canvas: chart.Style{FillColor: background},
		XAxis: chart.XAxis{
			Name:           "Date",
			NameStyle:      nameStyle,
			Style:          axisStyle,
			ValueFormatter: chart.TimeValueFormatterWithFormat("01-02 15:04"),
			Range: &chart.ContinuousRange{
				Min: chart.TimeToFloat64(b.xmin),
				Max: chart.TimeToFloat64(b.xmax),
			},
		},
		YAxis: chart.YAxis{
			Name:      spec.YAxisLabel,
			NameStyle: nameStyle,
			Style:     axisStyle,
			Range:     &chart.ContinuousRange{Min: b.ymin, Max: b.ymax},
		},
		Series:   series,
		Elements: elements,
	}, nil
}

// barElement draws one filled bar per point, centred on its time, from the
// zero baseline (clamped to the y range) to the value.
func barElement(pts []point, b bounds, trace drawing.Color) chart.Renderable {
	return func(r chart.Renderer, box chart.Box, _ chart.Style) {
		if len(pts) == 0 {
			return
		}
		xspan := float64(b.xmax.Sub(b.xmin))
		yspan := b.ymax - b.ymin
		if xspan <= 0 || yspan <= 0 {
			return
		}
		toX := func(t time.Time) int {
			return box.Left + int(math.Round(float64(t.Sub(b.xmin))/xspan*float64(box.Width())))
		}
		toY := func(v float64) int {
			v = math.Max(b.ymin, math.Min(b.ymax, v))
			return box.Bottom - int(math.Round((v-b.ymin)/yspan*float64(box.Height())))
		}

		half := max(1, int(float64(box.Width())/float64(len(pts))*0.4))
		base := toY(0)

		r.SetFillColor(trace.WithAlpha(160))
		r.SetStrokeColor(trace)
		r.SetStrokeWidth(1)
		for _, p := range pts {
			x := toX(p.t)
			top := toY(p.v)
			r.MoveTo(x-half, base)
			r.LineTo(x-half, top)
			r.LineTo(x+half, top)
			r.LineTo(x+half, base)
			r.LineTo(x-half, base)
			r.Close()
			r.FillStroke()
		}
	}
}

var errBadColor = errors.New("invalid trace color")

func parseColor(hex string) (drawing.Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) != 6 && len(h) != 3 {
		return drawing.Color{}, fmt.Errorf("%w %q", errBadColor, hex)
	}
	for _, c := range h {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return drawing.Color{}, fmt.Errorf("%w %q", errBadColor, hex)
		}
	}
	return drawing.ColorFromHex(h), nil
}
