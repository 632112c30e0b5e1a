package mssql

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

var (
	columnCols = []string{
		"table", "column", "type", "max_length", "precision", "scale",
		"is_nullable", "is_identity", "is_computed", "computed", "default", "comment",
	}
	keyCols = []string{"table", "index", "is_primary_key", "column"}
	fkCols  = []string{"table", "column", "ref_table", "ref_column", "name", "on_update", "on_delete"}
)

func TestColumnInfo(t *testing.T) {
	db, mock := inspectortest.MockDB(t, database.DriverMSSQL)
	ins := New(db, inspector.Options{})

	mock.ExpectQuery("LEFT JOIN sys.default_constraints").
		WillReturnRows(sqlmock.NewRows(columnCols).
			AddRow("orders", "id", "int", int64(4), int64(10), int64(0), false, true, false, nil, nil, nil).
			AddRow("orders", "customer_id", "int", int64(4), int64(10), int64(0), false, false, false, nil, nil, nil).
			AddRow("orders", "status", "nvarchar", int64(40), int64(0), int64(0), false, false, false, nil, "('new')", "order state").
			AddRow("orders", "qty", "int", int64(4), int64(10), int64(0), false, false, false, nil, "((0))", nil).
			AddRow("orders", "notes", "varchar", int64(-1), int64(0), int64(0), true, false, false, nil, nil, nil).
			AddRow("orders", "total", "decimal", int64(9), int64(12), int64(2), true, false, true, "([qty]*(2))", nil, nil))

	mock.ExpectQuery("FROM sys.indexes").
		WillReturnRows(sqlmock.NewRows(keyCols).
			AddRow("orders", "PK_orders", true, "id").
			AddRow("orders", "UQ_orders_status", false, "status"))

	mock.ExpectQuery("FROM sys.foreign_keys").
		WillReturnRows(sqlmock.NewRows(fkCols).
			AddRow("orders", "customer_id", "customers", "id", "FK_orders_customers", "NO_ACTION", "SET_NULL"))

	cols, err := ins.ColumnInfo(context.Background(), "orders")
	require.NoError(t, err)
	require.Len(t, cols, 6)

	id := cols[0]
	assert.True(t, id.IsPrimaryKey)
	assert.True(t, id.HasAutoIncrement)
	assert.Nil(t, id.MaxLength)
	assert.Equal(t, int64(10), *id.NumericPrecision)

	fk := cols[1]
	require.NotNil(t, fk.ForeignKeyTable)
	assert.Equal(t, "customers", *fk.ForeignKeyTable)
	assert.Equal(t, "id", *fk.ForeignKeyColumn)

	status := cols[2]
	assert.True(t, status.IsUnique)
	assert.Equal(t, "new", *status.DefaultValue)
	assert.Equal(t, int64(20), *status.MaxLength, "nvarchar lengths are reported in characters")
	assert.Equal(t, "order state", *status.Comment)

	assert.Equal(t, "0", *cols[3].DefaultValue)
	assert.Nil(t, cols[4].MaxLength, "varchar(max)")

	total := cols[5]
	assert.True(t, total.IsGenerated)
	assert.Equal(t, "([qty]*(2))", *total.GenerationExpression)
	assert.Equal(t, int64(2), *total.NumericScale)
}

func TestForeignKeys_Composite(t *testing.T) {
	db, mock := inspectortest.MockDB(t, database.DriverMSSQL)
	ins := New(db, inspector.Options{Schema: "sales"})

	mock.ExpectQuery("ORDER BY OBJECT_NAME(fk.parent_object_id), fk.name, fkc.constraint_column_id").
		WillReturnRows(sqlmock.NewRows(fkCols).
			AddRow("order_lines", "order_id", "orders", "id", "FK_lines_orders", "CASCADE", "CASCADE").
			AddRow("order_lines", "order_rev", "orders", "rev", "FK_lines_orders", "CASCADE", "CASCADE"))

	fks, err := ins.ForeignKeys(context.Background(), "order_lines")
	require.NoError(t, err)
	require.Len(t, fks, 2)
	assert.Equal(t, "order_id", fks[0].Column)
	assert.Equal(t, "rev", fks[1].ForeignKeyColumn)
	assert.Equal(t, "CASCADE", *fks[1].OnDelete)
}

func TestPrimaryKey(t *testing.T) {
	tests := []struct {
		name string
		rows *sqlmock.Rows
		want string
	}{
		{
			name: "single column",
			rows: sqlmock.NewRows(keyCols).AddRow("t", "PK_t", true, "id"),
			want: "id",
		},
		{
			name: "composite",
			rows: sqlmock.NewRows(keyCols).AddRow("t", "PK_t", true, "a").AddRow("t", "PK_t", true, "b"),
			want: "",
		},
		{
			name: "unique only",
			rows: sqlmock.NewRows(keyCols).AddRow("t", "UQ_t", false, "code"),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := inspectortest.MockDB(t, database.DriverMSSQL)
			mock.ExpectQuery("FROM sys.indexes").WillReturnRows(tt.rows)

			got, err := New(db, inspector.Options{}).PrimaryKey(context.Background(), "t")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTableExists(t *testing.T) {
	db, mock := inspectortest.MockDB(t, database.DriverMSSQL)
	mock.ExpectQuery("FROM sys.tables").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(1)))

	ok, err := New(db, inspector.Options{}).TableExists(context.Background(), "orders")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnwrapParens(t *testing.T) {
	tests := map[string]string{
		"((0))":       "0",
		"('new')":     "'new'",
		"(getdate())": "getdate()",
		"((1)+(2))":   "(1)+(2)",
		"(N'a)b')":    "N'a)b'",
		"newid()":     "newid()",
	}
	for in, want := range tests {
		in := in
		got := unwrapParens(&in)
		require.NotNil(t, got)
		assert.Equal(t, want, *got, in)
	}
	assert.Nil(t, unwrapParens(nil))
}
