package database

import "context"

// DB is a pooled connection to one catalog. Inspectors, the row preview and
// the HTTP API depend only on this interface; engine packages implement it.
// Every error it returns is an *errs.Error.
type DB interface {
	Ping(ctx context.Context) error
	Close()

	// Driver names the engine, which selects the SQL dialect and inspector.
	Driver() Driver

	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow defers errors, including no rows, to Row.Scan.
	QueryRow(ctx context.Context, sql string, args ...any) (Row, error)

	// Exec returns the affected row count, or 0 when the engine cannot report
	// one. Only helper-routine DDL goes through Exec.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// Rows iterates a result set. Close it on every path.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close()
}

// Row is the result of QueryRow.
type Row interface {
	Scan(dest ...any) error
}
