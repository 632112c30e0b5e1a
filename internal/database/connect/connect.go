// Package connect opens a database.DB for any supported engine.
//
// It is the only package that imports every driver; callers above it stay
// engine-agnostic.
package connect

import (
	"context"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/database/informix"
	"github.com/koustreak/schemascope/internal/database/mssql"
	"github.com/koustreak/schemascope/internal/database/mysql"
	"github.com/koustreak/schemascope/internal/database/postgres"
	"github.com/koustreak/schemascope/internal/database/sqlite"
	"github.com/koustreak/schemascope/internal/errs"
)

// Open connects to the engine named by cfg.Driver.
func Open(ctx context.Context, cfg *database.Config) (database.DB, error) {
	if cfg == nil || cfg.DSN == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "database DSN is required")
	}

	var (
		db  database.DB
		err error
	)
	switch cfg.Driver {
	case database.DriverPostgres:
		db, err = asDB(postgres.New(ctx, cfg))
	case database.DriverMySQL:
		db, err = asDB(mysql.New(ctx, cfg))
	case database.DriverMSSQL:
		db, err = asDB(mssql.New(ctx, cfg))
	case database.DriverSQLite:
		db, err = asDB(sqlite.New(ctx, cfg))
	case database.DriverInformix:
		db, err = asDB(informix.New(ctx, cfg))
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}

// asDB drops the concrete pointer on failure so callers never receive a
// non-nil interface wrapping a nil driver.
func asDB[T database.DB](d T, err error) (database.DB, error) {
	if err != nil {
		return nil, err
	}
	return d, nil
}
