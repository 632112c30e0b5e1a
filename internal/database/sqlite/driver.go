// Package sqlite opens SQLite databases through mattn/go-sqlite3.
package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/database/sqldb"
	"github.com/koustreak/schemascope/internal/errs"
)

// New opens the SQLite database named by cfg.DSN (a file path or a
// file: URI) and pings it.
func New(ctx context.Context, cfg *database.Config) (*sqldb.Driver, error) {
	c := *cfg
	c.Driver = database.DriverSQLite
	return sqldb.Open(ctx, "sqlite3", &c, mapError)
}

// mapError translates go-sqlite3 result codes into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return errs.Wrap(classifyCode(liteErr.Code), fmt.Sprintf("%s: %s", msg, liteErr.Error()), err)
	}

	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

func classifyCode(code sqlite3.ErrNo) errs.ErrKind {
	switch code {
	case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrCorrupt:
		return errs.ErrKindConnectionFailed
	case sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly:
		return errs.ErrKindPermissionDenied
	case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrInterrupt:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
