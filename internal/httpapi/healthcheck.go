package httpapi

import (
	"log/slog"
	"net/http"

	"weatherstation-server/internal/db"
	"weatherstation-server/internal/utils"
)

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db     *db.DB
	logger *slog.Logger
}

func NewHealthchecker(store *db.DB, logger *slog.Logger) healthchecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &healthcheckerImpl{db: store, logger: logger}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var ok int
	if err := h.db.GetContext(r.Context(), &ok, `SELECT 1`); err != nil || ok != 1 {
		h.logger.ErrorContext(r.Context(), "failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "failed to check database connectivity")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func registerHealthcheck(mux *http.ServeMux, store *db.DB, logger *slog.Logger) {
	healthchecker := NewHealthchecker(store, logger)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
