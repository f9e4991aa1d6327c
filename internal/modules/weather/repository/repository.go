package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"

	"weatherstation-server/internal/db"
	"weatherstation-server/internal/modules/weather/types"
)

//go:embed sql/get-location-id-by-name.sql
var getLocationIDByNameSQL string

//go:embed sql/insert-location.sql
var insertLocationSQL string

//go:embed sql/get-locations.sql
var getLocationsSQL string

//go:embed sql/get-weather.sql
var getWeatherSQL string

//go:embed sql/get-weather-by-timestamp.sql
var getWeatherByTimestampSQL string

//go:embed sql/insert-measurement.sql
var insertMeasurementSQL string

//go:embed sql/insert-measurement-or-ignore.sql
var insertMeasurementOrIgnoreSQL string

//go:embed sql/get-row-counts.sql
var getRowCountsSQL string

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict wraps store constraint violations (UNIQUE, FOREIGN KEY).
	ErrConflict = errors.New("conflict")
)

type WeatherRepository interface {
	GetOrCreateLocation(ctx context.Context, name string, latitude, longitude *float64) (int64, error)
	ListLocations(ctx context.Context) ([]types.Location, error)
	AddLocation(ctx context.Context, loc types.NewLocation) (int64, error)

	ListWeather(ctx context.Context, limit int) ([]types.Weather, error)
	GetWeatherByTimestamp(ctx context.Context, timestamp string) (types.Weather, error)
	AddWeather(ctx context.Context, w types.NewWeather) (int64, error)

	// ImportWeather stores w unless its timestamp already exists, and reports
	// whether a row was written.
	ImportWeather(ctx context.Context, w types.NewWeather) (bool, error)
	RowCounts(ctx context.Context) (locations int, measurements int, err error)
}

// execQueryer is satisfied by both *sqlx.Conn and *sqlx.Tx.
type execQueryer interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type repositoryImpl struct {
	db *db.DB
}

func NewRepository(store *db.DB) WeatherRepository {
	return &repositoryImpl{db: store}
}

func (r *repositoryImpl) GetOrCreateLocation(ctx context.Context, name string, latitude, longitude *float64) (int64, error) {
	var id int64
	err := r.db.WithConn(ctx, func(conn *sqlx.Conn) error {
		var err error
		id, err = getOrCreateLocation(ctx, conn, name, latitude, longitude)
		return err
	})
	return id, err
}

// getOrCreateLocation never updates the coordinates of an existing row. Two
// callers racing on the same new name both try the insert; the loser gets
// ErrConflict from the UNIQUE constraint.
func getOrCreateLocation(ctx context.Context, q execQueryer, name string, latitude, longitude *float64) (int64, error) {
	var id int64
	err := q.GetContext(ctx, &id, getLocationIDByNameSQL, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup location %q: %w", name, err)
	}

	res, err := q.ExecContext(ctx, insertLocationSQL, name, latitude, longitude)
	if err != nil {
		return 0, classify(fmt.Sprintf("insert location %q", name), err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert location %q: last insert id: %w", name, err)
	}
	return id, nil
}

func (r *repositoryImpl) ListLocations(ctx context.Context) ([]types.Location, error) {
	out := []types.Location{}
	err := r.db.WithConn(ctx, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &out, getLocationsSQL)
	})
	if err != nil {
		return nil, fmt.Errorf("get locations: %w", err)
	}
	return out, nil
}

func (r *repositoryImpl) AddLocation(ctx context.Context, loc types.NewLocation) (int64, error) {
	var id int64
	err := r.db.WithConn(ctx, func(conn *sqlx.Conn) error {
		res, err := conn.ExecContext(ctx, insertLocationSQL, loc.Name, loc.Latitude, loc.Longitude)
		if err != nil {
			return classify(fmt.Sprintf("location %q", loc.Name), err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// ListWeather returns measurements newest first. limit <= 0 means no limit.
func (r *repositoryImpl) ListWeather(ctx context.Context, limit int) ([]types.Weather, error) {
	if limit <= 0 {
		// SQLite treats a negative LIMIT as unbounded.
		limit = -1
	}
	out := []types.Weather{}
	err := r.db.WithConn(ctx, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &out, getWeatherSQL, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("get weather: %w", err)
	}
	return out, nil
}

func (r *repositoryImpl) GetWeatherByTimestamp(ctx context.Context, timestamp string) (types.Weather, error) {
	var w types.Weather
	err := r.db.WithConn(ctx, func(conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &w, getWeatherByTimestampSQL, timestamp)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return types.Weather{}, fmt.Errorf("no data found for timestamp %q: %w", timestamp, ErrNotFound)
	}
	if err != nil {
		return types.Weather{}, fmt.Errorf("get weather %q: %w", timestamp, err)
	}
	return w, nil
}

// AddWeather resolves the location and inserts the measurement in one
// transaction, so a rejected measurement leaves no new location behind.
func (r *repositoryImpl) AddWeather(ctx context.Context, w types.NewWeather) (int64, error) {
	var id int64
	err := r.db.WithConn(ctx, func(conn *sqlx.Conn) error {
		tx, err := conn.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		locationID, err := getOrCreateLocation(ctx, tx, w.LocationName, w.LocationLatitude, w.LocationLongitude)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, insertMeasurementSQL,
			w.Timestamp, w.Temperature, w.Humidity, w.WindSpeed, w.WindDirection, locationID)
		if err != nil {
			return classify(fmt.Sprintf("weather for timestamp %q", w.Timestamp), err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("insert weather: last insert id: %w", err)
		}
		return tx.Commit()
	})
	return id, err
}

func (r *repositoryImpl) ImportWeather(ctx context.Context, w types.NewWeather) (bool, error) {
	var inserted bool
	err := r.db.WithConn(ctx, func(conn *sqlx.Conn) error {
		locationID, err := getOrCreateLocation(ctx, conn, w.LocationName, nil, nil)
		if err != nil {
			return err
		}
		res, err := conn.ExecContext(ctx, insertMeasurementOrIgnoreSQL,
			w.Timestamp, w.Temperature, w.Humidity, w.WindSpeed, w.WindDirection, locationID)
		if err != nil {
			return classify(fmt.Sprintf("import weather for timestamp %q", w.Timestamp), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("import weather: rows affected: %w", err)
		}
		inserted = n > 0
		return nil
	})
	return inserted, err
}

func (r *repositoryImpl) RowCounts(ctx context.Context) (int, int, error) {
	var counts struct {
		Locations    int `db:"locations"`
		Measurements int `db:"measurements"`
	}
	err := r.db.WithConn(ctx, func(conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &counts, getRowCountsSQL)
	})
	if err != nil {
		return 0, 0, fmt.Errorf("count rows: %w", err)
	}
	return counts.Locations, counts.Measurements, nil
}

// classify marks SQLite constraint violations with ErrConflict and keeps the
// store's own message.
func classify(what string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%s: %w: %w", what, ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}
