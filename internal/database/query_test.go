package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/schemascope/internal/errs"
)

func TestSelectBuilder_Dialects(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "postgres",
			dialect:  DialectPostgres,
			wantSQL:  `SELECT "id", "email" FROM "users" WHERE "active" = $1 ORDER BY "id" DESC LIMIT $2 OFFSET $3`,
			wantArgs: []any{true, 10, 20},
		},
		{
			name:     "mysql",
			dialect:  DialectMySQL,
			wantSQL:  "SELECT `id`, `email` FROM `users` WHERE `active` = ? ORDER BY `id` DESC LIMIT ? OFFSET ?",
			wantArgs: []any{true, 10, 20},
		},
		{
			name:     "sqlite",
			dialect:  DialectSQLite,
			wantSQL:  `SELECT "id", "email" FROM "users" WHERE "active" = ? ORDER BY "id" DESC LIMIT ? OFFSET ?`,
			wantArgs: []any{true, 10, 20},
		},
		{
			name:     "mssql",
			dialect:  DialectMSSQL,
			wantSQL:  `SELECT [id], [email] FROM [users] WHERE [active] = @p1 ORDER BY [id] DESC OFFSET @p2 ROWS FETCH NEXT @p3 ROWS ONLY`,
			wantArgs: []any{true, 20, 10},
		},
		{
			name:     "informix",
			dialect:  DialectInformix,
			wantSQL:  `SELECT SKIP 20 FIRST 10 "id", "email" FROM "users" WHERE "active" = ? ORDER BY "id" DESC`,
			wantArgs: []any{true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := Select("users", tt.dialect).
				Columns("id", "email").
				Where("active", "=", true).
				OrderBy("id", Desc).
				Limit(10).
				Offset(20).
				Build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSelectBuilder_SelectStar(t *testing.T) {
	sql, args, err := Select("orders", DialectPostgres).Build()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "orders"`, sql)
	assert.Empty(t, args)
}

func TestSelectBuilder_OffsetWithoutLimit(t *testing.T) {
	tests := map[Dialect]string{
		DialectSQLite:   `SELECT * FROM "t" LIMIT -1 OFFSET ?`,
		DialectMySQL:    "SELECT * FROM `t` LIMIT 18446744073709551615 OFFSET ?",
		DialectPostgres: `SELECT * FROM "t" OFFSET $1`,
		DialectMSSQL:    `SELECT * FROM [t] ORDER BY (SELECT NULL) OFFSET @p1 ROWS`,
	}
	for d, want := range tests {
		sql, _, err := Select("t", d).Offset(5).Build()
		require.NoError(t, err)
		assert.Equal(t, want, sql)
	}
}

func TestSelectBuilder_LowercaseOperator(t *testing.T) {
	sql, _, err := Select("t", DialectPostgres).Where("name", "like", "a%").Build()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "t" WHERE "name" LIKE $1`, sql)
}

func TestSelectBuilder_Errors(t *testing.T) {
	_, _, err := Select("t", DialectPostgres).Where("id", "; DROP TABLE t; --", 1).Build()
	assert.True(t, errs.IsInvalidInput(err))

	_, _, err = Select("t", DialectMySQL).Limit(-1).Build()
	assert.True(t, errs.IsInvalidInput(err))

	_, _, err = Select("t", DialectMySQL).Offset(-3).Build()
	assert.True(t, errs.IsInvalidInput(err))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"we""ird"`, QuoteIdent(DialectPostgres, `we"ird`))
	assert.Equal(t, "`we``ird`", QuoteIdent(DialectMySQL, "we`ird"))
	assert.Equal(t, "[we]]ird]", QuoteIdent(DialectMSSQL, "we]ird"))
	assert.Equal(t, `"orders"`, QuoteIdent(DialectInformix, "orders"))
}

func TestDialectFor(t *testing.T) {
	assert.Equal(t, DialectPostgres, DialectFor(DriverPostgres))
	assert.Equal(t, DialectMySQL, DialectFor(DriverMySQL))
	assert.Equal(t, DialectSQLite, DialectFor(DriverSQLite))
	assert.Equal(t, DialectMSSQL, DialectFor(DriverMSSQL))
	assert.Equal(t, DialectInformix, DialectFor(DriverInformix))
}
