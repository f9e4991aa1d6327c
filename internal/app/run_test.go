package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"weatherstation-server/internal/config"
	"weatherstation-server/internal/db"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func testConfig(t *testing.T) config.Config {
	dir := t.TempDir()
	locations := filepath.Join(dir, "locations.csv")
	if err := os.WriteFile(locations, []byte("name,latitude,longitude\nLondon,51.5074,-0.1278\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return config.Config{
		AppEnv:           "dev",
		HTTPAddr:         freeAddr(t),
		Driver:           "sqlite3",
		Path:             filepath.Join(dir, "data", "weather.db"),
		MaxOpenConns:     2,
		MaxIdleConns:     1,
		SeedEnabled:      true,
		SeedLocationsCSV: locations,
		SeedWeatherCSV:   filepath.Join(dir, "missing.csv"),
	}
}

func waitForOK(t *testing.T, url string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("%s never became ready", url)
}

func TestRun_ServesAndShutsDown(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- Run(ctx, cfg, nil) }()

	waitForOK(t, "http://"+cfg.HTTPAddr+"/healthz")

	resp, err := http.Get("http://" + cfg.HTTPAddr + "/locations")
	if err != nil {
		t.Fatalf("GET /locations: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /locations status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v; want context.Canceled", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// The seeded location survives in the file-backed store.
	conn, err := db.Open(cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close(conn)
	var n int
	if err := conn.Get(&n, `SELECT COUNT(*) FROM locations`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("locations = %d; want 1", n)
	}
}

func TestRun_BadDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Driver = "postgres"
	if err := Run(context.Background(), cfg, nil); err == nil {
		t.Fatal("Run error = nil; want unsupported driver")
	}
}
