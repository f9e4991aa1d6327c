package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"

	"weatherstation-server/internal/config"
)

const driverName = "sqlite3"

// DB is a pooled sqlx handle that keeps the logger it was opened with.
type DB struct {
	*sqlx.DB
	logger *slog.Logger
}

// Logger returns the logger statements and connection errors go to.
func (d *DB) Logger() *slog.Logger { return d.logger }

// Open returns a pooled handle whose connections log every statement through
// logger. A nil logger means slog.Default().
func Open(cfg config.Config, logger *slog.Logger) (*DB, error) {
	if cfg.Driver != driverName {
		return nil, fmt.Errorf("db open: unsupported driver %q (allowed: %s)", cfg.Driver, driverName)
	}

	if logger == nil {
		logger = slog.Default()
	}

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	connector, err := NewLoggingConnector(dsn, logger)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db := sqlx.NewDb(sql.OpenDB(connector), driverName)

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return &DB{DB: db, logger: logger}, nil
}

func Close(d *DB) error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// WithConn runs fn on a connection reserved for the call. Foreign keys are
// switched on for that connection, and it goes back to the pool on every
// exit path, including a panic in fn.
func (d *DB) WithConn(ctx context.Context, fn func(conn *sqlx.Conn) error) error {
	conn, err := d.Connx(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			d.logger.Error("release connection", "error", closeErr)
		}
	}()

	if _, err := conn.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	return fn(conn)
}

func buildDSN(cfg config.Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	path := cfg.Path
	if path == "" {
		return "", fmt.Errorf("db open: empty SQLITE_PATH")
	}
	if !strings.HasPrefix(path, "file:") {
		dir := filepath.Dir(path)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	// busy_timeout: writers wait instead of failing with "database is locked".
	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
