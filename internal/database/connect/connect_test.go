package connect

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/errs"
)

func TestOpen_InvalidInput(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, nil)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = Open(ctx, &database.Config{Driver: database.DriverPostgres})
	assert.True(t, errs.IsInvalidInput(err))

	_, err = Open(ctx, &database.Config{Driver: "oracle", DSN: "x"})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestOpen_SQLite(t *testing.T) {
	cfg := database.DefaultConfig(filepath.Join(t.TempDir(), "c.db"))
	cfg.Driver = database.DriverSQLite

	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, database.DriverSQLite, db.Driver())
}

func TestOpen_FailureReturnsNilInterface(t *testing.T) {
	cfg := database.DefaultConfig("/nonexistent-dir/for/sure/x.db")
	cfg.Driver = database.DriverSQLite

	db, err := Open(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, db)
}
