package httpapi

import (
	"log/slog"
	"net/http"

	"weatherstation-server/internal/db"
	"weatherstation-server/internal/metrics"
)

// NewMux returns a mux with the operational endpoints registered. Feature
// modules add their own routes to it.
func NewMux(store *db.DB, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, store, logger)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}
