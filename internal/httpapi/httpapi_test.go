package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"weatherstation-server/internal/config"
	"weatherstation-server/internal/db"
	"weatherstation-server/internal/metrics"
)

func openDB(t *testing.T) *db.DB {
	t.Helper()
	cfg := config.Config{
		Driver:       "sqlite3",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
	conn, err := db.Open(cfg, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	return conn
}

func newTestServer(t *testing.T, mux *http.ServeMux, logger *slog.Logger) *httptest.Server {
	t.Helper()

	metrics.Init()
	srv := NewServer(config.Config{HTTPAddr: ":0"}, mux, logger)
	ts := httptest.NewServer(srv.Handler)

	t.Cleanup(ts.Close)
	return ts
}

func mustGet(t *testing.T, client *http.Client, url string) (*http.Response, string) {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, NewMux(openDB(t), nil), nil)

	resp, body := mustGet(t, ts.Client(), ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if got["status"] != "ok" {
		t.Fatalf("body.status=%q want=%q", got["status"], "ok")
	}
}

func TestHealthz_DatabaseDown(t *testing.T) {
	conn := openDB(t)
	if err := conn.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	var buf bytes.Buffer
	h := NewHealthchecker(conn, slog.New(slog.NewJSONHandler(&buf, nil)))

	rec := httptest.NewRecorder()
	h.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil).WithContext(context.Background()))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status=%d want=%d", rec.Code, http.StatusServiceUnavailable)
	}
	if !strings.Contains(buf.String(), "failed to check database connectivity") {
		t.Errorf("log = %q; want the failure on the injected logger", buf.String())
	}
}

func TestRequestID(t *testing.T) {
	ts := newTestServer(t, NewMux(openDB(t), nil), nil)

	t.Run("generated", func(t *testing.T) {
		resp, _ := mustGet(t, ts.Client(), ts.URL+"/healthz")
		if id := resp.Header.Get(requestIDHeader); len(id) != 36 {
			t.Errorf("%s = %q; want a uuid", requestIDHeader, id)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set(requestIDHeader, "abc-123")
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if got := resp.Header.Get(requestIDHeader); got != "abc-123" {
			t.Errorf("%s = %q; want abc-123", requestIDHeader, got)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	ts := newTestServer(t, mux, logger)

	mustGet(t, ts.Client(), ts.URL+"/items/7")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["route"] != "GET /items/{id}" || entry["path"] != "/items/7" {
		t.Errorf("route/path = %v/%v", entry["route"], entry["path"])
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v; want 418", entry["status"])
	}
	if _, ok := entry["request_id"]; !ok {
		t.Error("request_id missing from log entry")
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})
	ts := newTestServer(t, mux, logger)

	resp, _ := mustGet(t, ts.Client(), ts.URL+"/boom")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status=%d want=%d", resp.StatusCode, http.StatusInternalServerError)
	}
	if !strings.Contains(buf.String(), "kaboom") {
		t.Errorf("log = %q; want panic value", buf.String())
	}
	if !strings.Contains(buf.String(), "status=500") {
		t.Errorf("log = %q; want request logged with status 500", buf.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, NewMux(openDB(t), nil), nil)

	mustGet(t, ts.Client(), ts.URL+"/healthz")
	mustGet(t, ts.Client(), ts.URL+"/does-not-exist")

	resp, body := mustGet(t, ts.Client(), ts.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
	}
	for _, want := range []string{
		`weather_http_requests_total{method="GET",route="GET /healthz",status="200"}`,
		`weather_http_requests_total{method="GET",route="unmatched",status="404"}`,
		`weather_http_request_duration_seconds_bucket`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestUnmatchedRoutesAnswerJSON(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	ts := newTestServer(t, mux, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantAllow  string
	}{
		{name: "unknown path", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound},
		{name: "wrong method", method: http.MethodDelete, path: "/items/7", wantStatus: http.StatusMethodNotAllowed, wantAllow: "GET, HEAD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			if err != nil {
				t.Fatal(err)
			}
			resp, err := ts.Client().Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status=%d want=%d", resp.StatusCode, tt.wantStatus)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json; charset=utf-8" {
				t.Errorf("Content-Type = %q; want JSON", ct)
			}
			if got := resp.Header.Get("Allow"); got != tt.wantAllow {
				t.Errorf("Allow = %q; want %q", got, tt.wantAllow)
			}
			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode json: %v", err)
			}
			if body["error"] != http.StatusText(tt.wantStatus) || !strings.Contains(body["message"], tt.path) {
				t.Errorf("body = %v", body)
			}
		})
	}

	t.Run("matched route untouched", func(t *testing.T) {
		resp, _ := mustGet(t, ts.Client(), ts.URL+"/items/7")
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("status=%d want=%d", resp.StatusCode, http.StatusNoContent)
		}
	})
}
