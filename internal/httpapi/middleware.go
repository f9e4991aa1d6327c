package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"

	"weatherstation-server/internal/metrics"
	"weatherstation-server/internal/utils"
)

const requestIDHeader = "X-Request-ID"

// unmatchedRoute labels requests no pattern matched, keeping metric
// cardinality bounded.
const unmatchedRoute = "unmatched"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// requestLogger tags every request with an id, then logs and counts it once
// the handler has returned.
func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		elapsed := time.Since(start)

		// ServeMux records the matched pattern on r.
		route := r.Pattern
		if route == "" {
			route = unmatchedRoute
		}
		metrics.ObserveHTTPRequest(r.Method, route, sr.status, elapsed)

		logger.Info("http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", sr.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

// recoveryLogger adapts slog to the Println logger gorilla/handlers expects.
type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.logger.Error("http handler panic", "panic", fmt.Sprint(v...))
}

func recoverer(logger *slog.Logger, next http.Handler) http.Handler {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: logger}),
	)(next)
}

// discardWriter keeps only the status and headers ServeMux sets for its own
// 404 and 405 replies.
type discardWriter struct {
	header http.Header
	status int
}

func (d *discardWriter) Header() http.Header         { return d.header }
func (d *discardWriter) Write(b []byte) (int, error) { return len(b), nil }
func (d *discardWriter) WriteHeader(code int)        { d.status = code }

// jsonFallback serves mux, but replaces the text/plain body ServeMux writes
// when no pattern matches with the JSON error body.
func jsonFallback(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, pattern := mux.Handler(r); pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}

		dw := &discardWriter{header: http.Header{}, status: http.StatusNotFound}
		mux.ServeHTTP(dw, r)

		switch dw.status {
		case http.StatusMethodNotAllowed:
			w.Header().Set("Allow", dw.header.Get("Allow"))
			utils.WriteError(w, dw.status, fmt.Sprintf("method %s not allowed for %s", r.Method, r.URL.Path))
		default:
			utils.WriteError(w, http.StatusNotFound, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
		}
	})
}
