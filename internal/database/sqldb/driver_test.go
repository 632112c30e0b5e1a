package sqldb

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/errs"
)

func newMock(t *testing.T, mapErr ErrorMapper) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return Wrap(db, database.DriverMySQL, mapErr), mock
}

func TestDriver_QueryAndScan(t *testing.T) {
	d, mock := newMock(t, nil)
	mock.ExpectQuery("SELECT name FROM t").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("a").AddRow("b"))

	rows, err := d.Query(context.Background(), "SELECT name FROM t")
	require.NoError(t, err)

	got, err := database.ScanRows(rows)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"name": "a"}, {"name": "b"}}, got)
	assert.Equal(t, database.DriverMySQL, d.Driver())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_ErrorMapping(t *testing.T) {
	native := errors.New("native failure")
	mapper := func(err error, msg string) *errs.Error {
		return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
	}

	t.Run("mapper classifies native errors", func(t *testing.T) {
		d, mock := newMock(t, mapper)
		mock.ExpectQuery("SELECT 1").WillReturnError(native)

		_, err := d.Query(context.Background(), "SELECT 1")
		assert.True(t, errs.IsPermissionDenied(err))
		assert.True(t, errors.Is(err, native))
	})

	t.Run("no rows is not found", func(t *testing.T) {
		d, mock := newMock(t, mapper)
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"n"}))

		row, err := d.QueryRow(context.Background(), "SELECT 1")
		require.NoError(t, err)
		var n int
		assert.True(t, errs.IsNotFound(row.Scan(&n)))
	})

	t.Run("context errors are timeouts", func(t *testing.T) {
		d, mock := newMock(t, mapper)
		mock.ExpectQuery("SELECT 1").WillReturnError(context.DeadlineExceeded)

		_, err := d.Query(context.Background(), "SELECT 1")
		assert.True(t, errs.IsTimeout(err))
	})

	t.Run("classified errors pass through", func(t *testing.T) {
		d, mock := newMock(t, mapper)
		mock.ExpectExec("DROP").WillReturnError(errs.New(errs.ErrKindConnectionFailed, "link down"))

		_, err := d.Exec(context.Background(), "DROP FUNCTION f")
		assert.True(t, errs.IsConnectionFailed(err))
	})

	t.Run("nil mapper falls back to query failed", func(t *testing.T) {
		d, mock := newMock(t, nil)
		mock.ExpectExec("UPDATE").WillReturnError(native)

		_, err := d.Exec(context.Background(), "UPDATE t SET a = 1")
		assert.True(t, errs.IsQueryFailed(err))
	})
}

func TestDriver_Exec(t *testing.T) {
	d, mock := newMock(t, nil)
	mock.ExpectExec("DELETE FROM t").WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := d.Exec(context.Background(), "DELETE FROM t")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestWrap_DoesNotOwnPool(t *testing.T) {
	d, _ := newMock(t, nil)
	d.Close()

	assert.NoError(t, d.Ping(context.Background()), "the caller's pool stays open")
}
