// Package sqldb adapts a database/sql pool to database.DB.
//
// The MySQL, SQL Server, SQLite and Informix drivers all sit on top of
// database/sql; they differ only in the registered driver name, pool
// defaults and how native errors are classified. Each engine package
// supplies those three things and reuses the wrapper below.
package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/errs"
)

// ErrorMapper translates a native driver error into *errs.Error.
type ErrorMapper func(err error, msg string) *errs.Error

// Driver is a database/sql implementation of database.DB.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db      *sql.DB
	engine  database.Driver
	mapErr  ErrorMapper
	ownPool bool
}

// Open opens a pool for the registered database/sql driverName, applies
// the pool settings from cfg and pings it before returning.
func Open(ctx context.Context, driverName string, cfg *database.Config, mapErr ErrorMapper) (*Driver, error) {
	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(int(cfg.MinConns))
	}
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	d := &Driver{db: db, engine: cfg.Driver, mapErr: mapErr, ownPool: true}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

// Wrap adapts an already-open *sql.DB. The caller keeps ownership of the
// pool: Close on the returned Driver does not close db.
func Wrap(db *sql.DB, engine database.Driver, mapErr ErrorMapper) *Driver {
	return &Driver{db: db, engine: engine, mapErr: mapErr}
}

// --- database.DB implementation ---

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return d.mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() {
	if d.ownPool {
		_ = d.db.Close()
	}
}

func (d *Driver) Driver() database.Driver {
	return d.engine
}

func (d *Driver) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, d.mapError(err, "query failed")
	}
	return &sqlRows{rows: rows, d: d}, nil
}

func (d *Driver) QueryRow(ctx context.Context, query string, args ...any) (database.Row, error) {
	row := d.db.QueryRowContext(ctx, query, args...)
	return &sqlRow{row: row, d: d}, nil
}

func (d *Driver) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, d.mapError(err, "exec failed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers (ODBC DDL) cannot report affected rows.
		return 0, nil
	}
	return n, nil
}

func (d *Driver) mapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	var classified *errs.Error
	if errors.As(err, &classified) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}
	if d.mapErr == nil {
		return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
	}
	return d.mapErr(err, msg)
}

// --- sql.DB type wrappers ---

type sqlRows struct {
	rows *sql.Rows
	d    *Driver
}

func (r *sqlRows) Next() bool                 { return r.rows.Next() }
func (r *sqlRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *sqlRows) Close()                     { _ = r.rows.Close() }

func (r *sqlRows) Scan(dest ...any) error {
	return r.d.mapError(r.rows.Scan(dest...), "failed to scan row")
}

func (r *sqlRows) Err() error {
	return r.d.mapError(r.rows.Err(), "error iterating rows")
}

type sqlRow struct {
	row *sql.Row
	d   *Driver
}

func (r *sqlRow) Scan(dest ...any) error {
	return r.d.mapError(r.row.Scan(dest...), "failed to scan row")
}
