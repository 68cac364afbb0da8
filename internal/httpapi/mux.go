package httpapi

import (
	"database/sql"
	"net/http"

	"siot-dashboard/internal/metrics"
)

// NewMux returns a mux with the operational routes. Feature modules add
// their own routes to it.
func NewMux(db *sql.DB, m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	mux.Handle("GET /metrics", m.Handler())
	return mux
}
