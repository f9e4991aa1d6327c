package db

import (
	"context"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// loggingConnector implements driver.Connector by opening the sqlite3 driver
// and wrapping each connection so every statement is logged at debug level.
type loggingConnector struct {
	dsn    string
	logger *slog.Logger
	driver *sqlite3.SQLiteDriver
}

type loggingConn struct {
	conn   driver.Conn
	logger *slog.Logger
}

type loggingStmt struct {
	stmt   driver.Stmt
	query  string
	logger *slog.Logger
}

// NewLoggingConnector returns a driver.Connector for sqlite3 that logs SQL text,
// arguments, duration and error. Use sql.OpenDB(connector) to get a *sql.DB.
// If logger is nil, slog.Default() is used.
func NewLoggingConnector(dsn string, logger *slog.Logger) (driver.Connector, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite3-log: empty dsn")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingConnector{dsn: dsn, logger: logger, driver: &sqlite3.SQLiteDriver{}}, nil
}

func (c *loggingConnector) Driver() driver.Driver {
	return c.driver
}

func (c *loggingConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.driver.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return &loggingConn{conn: conn, logger: c.logger}, nil
}

func (c *loggingConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *loggingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var (
		stmt driver.Stmt
		err  error
	)
	if prep, ok := c.conn.(driver.ConnPrepareContext); ok {
		stmt, err = prep.PrepareContext(ctx, query)
	} else {
		stmt, err = c.conn.Prepare(query)
	}
	if err != nil {
		return nil, err
	}
	return &loggingStmt{stmt: stmt, query: query, logger: c.logger}, nil
}

// ExecContext lets multi-statement scripts (schema DDL) reach sqlite3 in one call.
func (c *loggingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	execer, ok := c.conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := time.Now()
	res, err := execer.ExecContext(ctx, query, args)
	logQuery(c.logger, "exec", query, namedValuesToSlice(args), start, err)
	return res, err
}

func (c *loggingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	queryer, ok := c.conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := time.Now()
	rows, err := queryer.QueryContext(ctx, query, args)
	logQuery(c.logger, "query", query, namedValuesToSlice(args), start, err)
	return rows, err
}

func (c *loggingConn) Close() error {
	return c.conn.Close()
}

func (c *loggingConn) Begin() (driver.Tx, error) {
	//nolint:staticcheck // SA1019 – required when underlying conn does not implement ConnBeginTx
	return c.conn.Begin()
}

func (c *loggingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if beginTx, ok := c.conn.(driver.ConnBeginTx); ok {
		return beginTx.BeginTx(ctx, opts)
	}
	//nolint:staticcheck // SA1019 – fallback when underlying conn does not implement ConnBeginTx
	return c.conn.Begin()
}

func (s *loggingStmt) Exec(args []driver.Value) (driver.Result, error) {
	start := time.Now()
	//nolint:staticcheck // SA1019 – required when underlying stmt does not implement StmtExecContext
	res, err := s.stmt.Exec(args)
	logQuery(s.logger, "exec", s.query, valuesToSlice(args), start, err)
	return res, err
}

func (s *loggingStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	execCtx, ok := s.stmt.(driver.StmtExecContext)
	if !ok {
		return s.Exec(namedValuesToValues(args))
	}
	start := time.Now()
	res, err := execCtx.ExecContext(ctx, args)
	logQuery(s.logger, "exec", s.query, namedValuesToSlice(args), start, err)
	return res, err
}

func (s *loggingStmt) Query(args []driver.Value) (driver.Rows, error) {
	start := time.Now()
	//nolint:staticcheck // SA1019 – required when underlying stmt does not implement StmtQueryContext
	rows, err := s.stmt.Query(args)
	logQuery(s.logger, "query", s.query, valuesToSlice(args), start, err)
	return rows, err
}

func (s *loggingStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	queryCtx, ok := s.stmt.(driver.StmtQueryContext)
	if !ok {
		return s.Query(namedValuesToValues(args))
	}
	start := time.Now()
	rows, err := queryCtx.QueryContext(ctx, args)
	logQuery(s.logger, "query", s.query, namedValuesToSlice(args), start, err)
	return rows, err
}

func (s *loggingStmt) Close() error {
	return s.stmt.Close()
}

// NumInput returns -1 (unknown) when the wrapped statement cannot tell.
func (s *loggingStmt) NumInput() int {
	if n, ok := s.stmt.(interface{ NumInput() int }); ok {
		return n.NumInput()
	}
	return -1
}

func logQuery(logger *slog.Logger, op, query string, args []string, start time.Time, err error) {
	attrs := []any{
		"op", op,
		"sql", query,
		"args", args,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	logger.Debug("sql", attrs...)
}

func namedValuesToSlice(args []driver.NamedValue) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a.Name != "" {
			out[i] = a.Name + "=" + formatArg(a.Value)
		} else {
			out[i] = formatArg(a.Value)
		}
	}
	return out
}

func valuesToSlice(args []driver.Value) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = formatArg(a)
	}
	return out
}

func namedValuesToValues(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(args))
	for i := range args {
		out[i] = args[i].Value
	}
	return out
}

func formatArg(v any) string {
	if v == nil {
		return "NULL"
	}
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
