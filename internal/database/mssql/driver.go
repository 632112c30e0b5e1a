// Package mssql connects to SQL Server / Azure SQL through go-mssqldb.
package mssql

import (
	"context"
	"errors"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/database/sqldb"
	"github.com/koustreak/schemascope/internal/errs"
)

// New opens a SQL Server connection pool and pings it.
// The DSN uses the sqlserver:// URL form accepted by go-mssqldb.
func New(ctx context.Context, cfg *database.Config) (*sqldb.Driver, error) {
	c := *cfg
	c.Driver = database.DriverMSSQL
	return sqldb.Open(ctx, "sqlserver", &c, mapError)
}

// SQL Server error numbers
// Full list: https://learn.microsoft.com/sql/relational-databases/errors-events/database-engine-events-and-errors
const (
	errInvalidObject      = 208
	errPermissionDenied   = 229
	errPermissionDenied2  = 230
	errDatabaseNotExist   = 911
	errCannotOpenDatabase = 4060
	errLoginFailed        = 18456
)

// mapError translates go-mssqldb errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return errs.Wrap(classifyNumber(msErr.Number), fmt.Sprintf("%s: %s", msg, msErr.Message), err)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

func classifyNumber(n int32) errs.ErrKind {
	switch n {
	case errPermissionDenied, errPermissionDenied2, errLoginFailed:
		return errs.ErrKindPermissionDenied
	case errDatabaseNotExist, errCannotOpenDatabase:
		return errs.ErrKindConnectionFailed
	case errInvalidObject:
		return errs.ErrKindNotFound
	default:
		return errs.ErrKindQueryFailed
	}
}
