// Package mysql connects to MySQL / MariaDB through go-sql-driver/mysql.
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/database/sqldb"
	"github.com/koustreak/schemascope/internal/errs"
)

// New opens a MySQL connection pool using the provided Config and returns a
// database.DB. It pings the server before returning.
func New(ctx context.Context, cfg *database.Config) (*sqldb.Driver, error) {
	dsn, err := normalizeDSN(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}
	c := *cfg
	c.DSN = dsn
	c.Driver = database.DriverMySQL
	return sqldb.Open(ctx, "mysql", &c, mapError)
}

// normalizeDSN forces parseTime so DATETIME columns scan into time.Time.
func normalizeDSN(dsn string) (string, error) {
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	parsed.ParseTime = true
	return parsed.FormatDSN(), nil
}

// --- error mapping ---

// mapError translates go-sql-driver/mysql errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyMySQLCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
		)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyMySQLCode maps MySQL error numbers to ErrKind.
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
func classifyMySQLCode(code uint16) errs.ErrKind {
	switch code {
	case 1044, 1045, 1142, 1143, 1227:
		return errs.ErrKindPermissionDenied
	case 1040, 1046, 1049, 1203, 2002, 2003, 2006, 2013:
		return errs.ErrKindConnectionFailed
	case 1146:
		return errs.ErrKindNotFound
	case 3024:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
