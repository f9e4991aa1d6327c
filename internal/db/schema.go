package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
)

//go:embed sql/schema.sql
var schemaSQL string

// InitializeSchema creates the locations and measurements tables when they
// are missing. It is safe to call on every start.
func InitializeSchema(ctx context.Context, db *DB) error {
	return db.WithConn(ctx, func(conn *sqlx.Conn) error {
		if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}
		return nil
	})
}
