// Package seed imports the location catalog and historical measurements from
// CSV files into an empty store.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"weatherstation-server/internal/metrics"
	"weatherstation-server/internal/modules/weather/types"
)

const (
	fileLocations = "locations"
	fileWeather   = "weather"
)

// Store is the subset of the weather repository the loader writes through.
type Store interface {
	RowCounts(ctx context.Context) (locations int, measurements int, err error)
	GetOrCreateLocation(ctx context.Context, name string, latitude, longitude *float64) (int64, error)
	ImportWeather(ctx context.Context, w types.NewWeather) (bool, error)
}

type FileReport struct {
	Path    string
	Missing bool
	// Loaded counts rows that reached the store; Skipped counts malformed rows.
	Loaded  int
	Skipped int
	// Err is set when the file could not be read to the end.
	Err error
}

type Report struct {
	// Ran is false when both tables already held data.
	Ran       bool
	Locations FileReport
	Weather   FileReport
}

type Loader struct {
	store         Store
	locationsPath string
	weatherPath   string
	logger        *slog.Logger
}

func NewLoader(store Store, locationsPath, weatherPath string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		store:         store,
		locationsPath: locationsPath,
		weatherPath:   weatherPath,
		logger:        logger,
	}
}

// Load imports both files when either table is empty. Locations go first so
// measurements can resolve them. Problems with a single file or row are
// logged and recorded in the report; only a failure to count rows is
// returned as an error.
func (l *Loader) Load(ctx context.Context) (Report, error) {
	locations, measurements, err := l.store.RowCounts(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("seed: %w", err)
	}
	if locations > 0 && measurements > 0 {
		l.logger.Info("seed skipped, tables already contain data",
			"locations", locations,
			"measurements", measurements,
		)
		return Report{}, nil
	}

	l.logger.Info("seeding from csv",
		"locations_csv", l.locationsPath,
		"weather_csv", l.weatherPath,
	)
	report := Report{Ran: true}
	report.Locations = l.loadFile(ctx, fileLocations, l.locationsPath, l.loadLocationRow)
	report.Weather = l.loadFile(ctx, fileWeather, l.weatherPath, l.loadWeatherRow)
	return report, nil
}

// errMalformed marks a row that is skipped rather than aborting the file.
var errMalformed = errors.New("malformed row")

type rowFunc func(ctx context.Context, row []string) error

func (l *Loader) loadFile(ctx context.Context, kind, path string, load rowFunc) FileReport {
	rep := FileReport{Path: path}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("seed file not found", "file", kind, "path", path)
		rep.Missing = true
		return rep
	}
	if err != nil {
		l.logger.Error("seed file open failed", "file", kind, "path", path, "error", err)
		rep.Err = err
		return rep
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			l.logger.Error("seed file close failed", "path", path, "error", closeErr)
		}
	}()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	if _, err := r.Read(); err != nil {
		if !errors.Is(err, io.EOF) {
			l.logger.Error("seed header read failed", "file", kind, "path", path, "error", err)
			rep.Err = err
		}
		return rep
	}

	// Row numbers are 1-based and count the header, matching what an editor shows.
	for rowNum := 2; ; rowNum++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				l.logger.Warn("seed row skipped", "file", kind, "row", rowNum, "error", err)
				rep.Skipped++
				metrics.ObserveSeedRow(kind, metrics.ResultSkipped)
				continue
			}
			l.logger.Error("seed file read failed", "file", kind, "path", path, "error", err)
			rep.Err = err
			break
		}

		err = load(ctx, row)
		if errors.Is(err, errMalformed) {
			l.logger.Warn("seed row skipped", "file", kind, "row", rowNum, "values", row, "error", err)
			rep.Skipped++
			metrics.ObserveSeedRow(kind, metrics.ResultSkipped)
			continue
		}
		if err != nil {
			l.logger.Error("seed load aborted", "file", kind, "path", path, "row", rowNum, "error", err)
			rep.Err = err
			metrics.ObserveSeedRow(kind, metrics.ResultFailed)
			break
		}
		rep.Loaded++
		metrics.ObserveSeedRow(kind, metrics.ResultLoaded)
	}

	l.logger.Info("seed file loaded",
		"file", kind,
		"path", path,
		"loaded", rep.Loaded,
		"skipped", rep.Skipped,
	)
	return rep
}

// loadLocationRow expects: name, latitude, longitude.
func (l *Loader) loadLocationRow(ctx context.Context, row []string) error {
	if len(row) < 3 {
		return fmt.Errorf("%w: want 3 columns, got %d", errMalformed, len(row))
	}
	name := strings.TrimSpace(row[0])
	if name == "" {
		return fmt.Errorf("%w: empty location name", errMalformed)
	}
	lat, err := parseOptionalFloat("latitude", row[1])
	if err != nil {
		return err
	}
	lon, err := parseOptionalFloat("longitude", row[2])
	if err != nil {
		return err
	}
	_, err = l.store.GetOrCreateLocation(ctx, name, lat, lon)
	return err
}

// loadWeatherRow expects: timestamp, temperature, humidity, wind_speed,
// wind_direction, location_name. The location is expected to come from the
// locations file, so no coordinates are passed.
func (l *Loader) loadWeatherRow(ctx context.Context, row []string) error {
	if len(row) < 6 {
		return fmt.Errorf("%w: want 6 columns, got %d", errMalformed, len(row))
	}
	w := types.NewWeather{
		Timestamp:    strings.TrimSpace(row[0]),
		LocationName: strings.TrimSpace(row[5]),
	}
	if w.Timestamp == "" {
		return fmt.Errorf("%w: empty timestamp", errMalformed)
	}
	if w.LocationName == "" {
		return fmt.Errorf("%w: empty location name", errMalformed)
	}

	fields := []struct {
		name string
		dst  **float64
		raw  string
	}{
		{"temperature", &w.Temperature, row[1]},
		{"humidity", &w.Humidity, row[2]},
		{"wind_speed", &w.WindSpeed, row[3]},
		{"wind_direction", &w.WindDirection, row[4]},
	}
	for _, f := range fields {
		v, err := parseOptionalFloat(f.name, f.raw)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	_, err := l.store.ImportWeather(ctx, w)
	return err
}

// parseOptionalFloat maps an empty cell to nil.
func parseOptionalFloat(field, s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %q is not a number", errMalformed, field, s)
	}
	return &v, nil
}
