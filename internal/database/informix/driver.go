// Package informix connects to IBM Informix through the Informix CSDK ODBC
// driver (github.com/alexbrainman/odbc).
//
// DSNs are ODBC connection strings, e.g.
//
//	DRIVER={IBM INFORMIX ODBC DRIVER};HOST=db1;SERVER=ol_informix;SERVICE=9088;
//	PROTOCOL=onsoctcp;DATABASE=stores;UID=informix;PWD=secret;DELIMIDENT=y
//
// DELIMIDENT=y is required for the quoted identifiers emitted by the query
// builder.
package informix

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexbrainman/odbc"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/database/sqldb"
	"github.com/koustreak/schemascope/internal/errs"
)

// New opens an ODBC pool to Informix and pings it.
func New(ctx context.Context, cfg *database.Config) (*sqldb.Driver, error) {
	c := *cfg
	c.Driver = database.DriverInformix
	return sqldb.Open(ctx, "odbc", &c, mapError)
}

// Informix native error codes (finderr).
const (
	errTableNotFound    = -206
	errRoutineNotFound  = -674
	errNoConnectPerm    = -387
	errNoPermission     = -272
	errDatabaseNotFound = -329
	errServerNotFound   = -908
)

// mapError translates ODBC diagnostics into *errs.Error, using the Informix
// native code first and the SQLSTATE class as a fallback.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	var odbcErr *odbc.Error
	if errors.As(err, &odbcErr) && len(odbcErr.Diag) > 0 {
		d := odbcErr.Diag[0]
		return errs.Wrap(classify(d.State, d.NativeError), fmt.Sprintf("%s: %s", msg, strings.TrimSpace(d.Message)), err)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

func classify(state string, native int) errs.ErrKind {
	switch native {
	case errNoConnectPerm, errNoPermission:
		return errs.ErrKindPermissionDenied
	case errDatabaseNotFound, errServerNotFound:
		return errs.ErrKindConnectionFailed
	case errTableNotFound, errRoutineNotFound:
		return errs.ErrKindNotFound
	}

	switch {
	case strings.HasPrefix(state, "08"):
		return errs.ErrKindConnectionFailed
	case strings.HasPrefix(state, "28"):
		return errs.ErrKindPermissionDenied
	case state == "HYT00" || state == "HYT01":
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
