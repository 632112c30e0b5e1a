// Package inspectortest holds helpers shared by the dialect tests.
package inspectortest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/database/sqldb"
)

// containsMatcher matches when the executed SQL contains the expected
// fragment, so tests can pin the catalog a query reads without repeating
// its full text.
var containsMatcher = sqlmock.QueryMatcherFunc(func(expected, actual string) error {
	if strings.Contains(actual, expected) {
		return nil
	}
	return fmt.Errorf("query %q does not contain %q", actual, expected)
})

// MockDB returns a database.DB for engine backed by go-sqlmock. Expectations
// are checked when the test ends.
func MockDB(t *testing.T, engine database.Driver) (database.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(containsMatcher))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return sqldb.Wrap(db, engine, nil), mock
}
