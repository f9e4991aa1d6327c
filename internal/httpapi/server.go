package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"weatherstation-server/internal/config"
)

// NewServer serves mux behind request logging and panic recovery. Requests
// that match no route get a JSON error body.
func NewServer(cfg config.Config, mux *http.ServeMux, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(logger, recoverer(logger, jsonFallback(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}
