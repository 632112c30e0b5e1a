package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/inspector"
	"github.com/koustreak/schemascope/internal/inspector/inspectortest"
)

func TestStripCast(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`'new'::character varying`, `'new'`},
		{`'it''s'::text`, `'it''s'`},
		{`0`, `0`},
		{`(-1)::integer`, `-1`},
		{`NULL::character varying`, `NULL`},
		{`'{}'::jsonb`, `'{}'`},
		{`'a'::"Mood"`, `'a'`},
		{`nextval('orders_id_seq'::regclass)`, `nextval('orders_id_seq'::regclass)`},
		{`now()`, `now()`},
		{`CURRENT_TIMESTAMP`, `CURRENT_TIMESTAMP`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := stripCast(&tt.in)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}

	assert.Nil(t, stripCast(nil))
}

func TestStripCast_ThenParseDefault(t *testing.T) {
	raw := `'pending'::character varying`
	assert.Equal(t, "pending", *inspector.ParseDefaultValue(stripCast(&raw)))

	null := `NULL::text`
	assert.Nil(t, inspector.ParseDefaultValue(stripCast(&null)))
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, "character varying", normalizeType("character varying", "varchar"))
	assert.Equal(t, "int4[]", normalizeType("ARRAY", "_int4"))
	assert.Equal(t, "mood", normalizeType("USER-DEFINED", "mood"))
	assert.Equal(t, "timestamp without time zone", normalizeType("timestamp without time zone", "timestamp"))
}

func TestReferentialAction(t *testing.T) {
	assert.Equal(t, "NO ACTION", *referentialAction("a"))
	assert.Equal(t, "CASCADE", *referentialAction("c"))
	assert.Equal(t, "SET NULL", *referentialAction("n"))
	assert.Nil(t, referentialAction("?"))
}

func TestForeignKeys_ScopedQuery(t *testing.T) {
	db, mock := inspectortest.MockDB(t, database.DriverPostgres)
	ins := New(db, inspector.Options{})

	mock.ExpectQuery("unnest(con.conkey, con.confkey) WITH ORDINALITY").
		WithArgs("public", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"t", "c", "rt", "rc", "name", "ord", "upd", "del"}).
			AddRow("orders", "customer_id", "customers", "id", "orders_customer_id_fkey", int64(1), "a", "c"))

	fks, err := ins.ForeignKeys(context.Background(), "orders")
	require.NoError(t, err)
	require.Len(t, fks, 1)
	assert.Equal(t, inspector.ForeignKey{
		Table:            "orders",
		Column:           "customer_id",
		ForeignKeyTable:  "customers",
		ForeignKeyColumn: "id",
		ConstraintName:   "orders_customer_id_fkey",
		OnUpdate:         inspector.StrPtr("NO ACTION"),
		OnDelete:         inspector.StrPtr("CASCADE"),
	}, fks[0])
}

func TestPrimaryKey_Composite(t *testing.T) {
	db, mock := inspectortest.MockDB(t, database.DriverPostgres)
	ins := New(db, inspector.Options{Schema: "sales"})

	mock.ExpectQuery("con.contype IN ('p', 'u')").
		WithArgs("sales", "order_lines").
		WillReturnRows(sqlmock.NewRows([]string{"t", "name", "primary", "col"}).
			AddRow("order_lines", "order_lines_pkey", true, "order_id").
			AddRow("order_lines", "order_lines_pkey", true, "line_no"))

	pk, err := ins.PrimaryKey(context.Background(), "order_lines")
	require.NoError(t, err)
	assert.Equal(t, "", pk)
}

func TestColumnInfo_UniqueIndexWithoutConstraint(t *testing.T) {
	db, mock := inspectortest.MockDB(t, database.DriverPostgres)
	ins := New(db, inspector.Options{})

	mock.ExpectQuery("FROM information_schema.columns c").
		WithArgs("public", "customers").
		WillReturnRows(sqlmock.NewRows([]string{"t", "c", "dt", "udt", "def", "null", "len", "prec", "scale", "gen", "expr", "ident", "comment"}).
			AddRow("customers", "id", "integer", "int4", nil, false, nil, int64(32), int64(0), false, nil, true, nil).
			AddRow("customers", "email", "text", "text", nil, false, nil, nil, nil, false, nil, false, nil).
			AddRow("customers", "region", "text", "text", nil, true, nil, nil, nil, false, nil, false, nil))

	mock.ExpectQuery("WHERE ix.indisunique").
		WithArgs("public", "customers").
		WillReturnRows(sqlmock.NewRows([]string{"t", "name", "primary", "col"}).
			AddRow("customers", "customers_email_idx", false, "email").
			AddRow("customers", "customers_pkey", true, "id"))

	mock.ExpectQuery("con.contype = 'f'").
		WithArgs("public", "customers").
		WillReturnRows(sqlmock.NewRows([]string{"t", "c", "rt", "rc", "name", "ord", "upd", "del"}))

	cols, err := ins.ColumnInfo(context.Background(), "customers")
	require.NoError(t, err)
	require.Len(t, cols, 3)

	assert.True(t, cols[0].IsPrimaryKey)
	assert.True(t, cols[1].IsUnique, "unique index alone makes email unique")
	assert.False(t, cols[2].IsUnique)
}
