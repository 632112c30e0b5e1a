package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/koustreak/schemascope/internal/errs"
)

func TestClassifySQLState(t *testing.T) {
	tests := map[string]errs.ErrKind{
		"08006": errs.ErrKindConnectionFailed,
		"28P01": errs.ErrKindPermissionDenied,
		"42501": errs.ErrKindPermissionDenied,
		"57014": errs.ErrKindTimeout,
		"42P01": errs.ErrKindNotFound,
		"42601": errs.ErrKindQueryFailed,
		"":      errs.ErrKindQueryFailed,
	}
	for code, want := range tests {
		assert.Equal(t, want, classifySQLState(code), code)
	}
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil, "x"))
	assert.True(t, errs.IsTimeout(mapError(context.DeadlineExceeded, "x")))
	assert.True(t, errs.IsNotFound(mapError(pgx.ErrNoRows, "x")))
	assert.True(t, errs.IsConnectionFailed(mapError(errors.New("tls handshake"), "x")))

	err := mapError(&pgconn.PgError{Code: "42P01", Message: `relation "nope" does not exist`}, "query failed")
	assert.True(t, errs.IsNotFound(err))
	assert.Contains(t, err.Message, "does not exist")
}
