package controller

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"weatherstation-server/internal/modules/weather/repository"
	"weatherstation-server/internal/modules/weather/types"
	"weatherstation-server/internal/utils"
)

const maxBodyBytes = 1 << 20

type createdResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// parseLimit returns the "limit" query parameter. Anything that is not a
// positive integer means no limit and is reported as 0.
func parseLimit(r *http.Request) int {
	s := strings.TrimSpace(r.URL.Query().Get("limit"))
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (c *weatherControllerImpl) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		c.logger.Warn("read request body failed", "path", r.URL.Path, "error", err)
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON data provided.")
		return nil, false
	}
	return body, true
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		utils.WriteError(w, http.StatusBadRequest, verr.Message)
		return
	}
	utils.WriteError(w, http.StatusBadRequest, err.Error())
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

// writeStoreError maps repository errors onto status codes.
func (c *weatherControllerImpl) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isNotFound(err):
		utils.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrConflict):
		c.logger.Warn("store constraint violated", "method", r.Method, "path", r.URL.Path, "error", err)
		utils.WriteError(w, http.StatusConflict, err.Error())
	default:
		c.logger.Error("store operation failed", "method", r.Method, "path", r.URL.Path, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "Database error: "+err.Error())
	}
}
