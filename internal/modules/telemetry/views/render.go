package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
	"time"

	"siot-dashboard/internal/modules/telemetry/gauge"
)

var dashboardTmpl *template.Template

var funcs = template.FuncMap{
	// css marks a server-built CSS value such as "rotate(131.94deg)" as safe.
	"css": func(s string) template.CSS { return template.CSS(s) },
	"datetime": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04:05 MST")
	},
}

// loadTemplatesFromFS loads dashboard templates from the given fs and dir.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("dashboard").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates loads the embedded templates. Call during startup before
// serving requests.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

var errNotLoaded = errors.New("dashboard template not loaded: call views.LoadTemplates during startup")

// ChartView is one chart container on the page.
type ChartView struct {
	Container string
	Title     string
	SVG       template.HTML
	Empty     bool
	Failed    bool
}

type DashboardData struct {
	Charts          []ChartView
	Gauge           gauge.GaugeState
	DataUnavailable bool
	Readings        int
	Limit           int
	// Stored is the total number of readings in the store; 0 hides it.
	Stored          int
	GeneratedAt     time.Time
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errNotLoaded
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderGaugePartial executes only the gauge panel, for periodic refresh.
func RenderGaugePartial(w io.Writer, data *gauge.GaugeState) error {
	if dashboardTmpl == nil {
		return errNotLoaded
	}
	return dashboardTmpl.ExecuteTemplate(w, "partials/gauge.html", data)
}
