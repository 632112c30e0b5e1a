package inspector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/schemascope/internal/errs"
)

func TestParseDefaultValue(t *testing.T) {
	tests := []struct {
		name string
		raw  *string
		want *string
	}{
		{"nil", nil, nil},
		{"null keyword", StrPtr("NULL"), nil},
		{"null lower with blanks", StrPtr("  null "), nil},
		{"single quoted", StrPtr("'pending'"), StrPtr("pending")},
		{"double quoted", StrPtr(`"x"`), StrPtr("x")},
		{"quoted null stays text", StrPtr("'NULL'"), StrPtr("NULL")},
		{"empty quotes", StrPtr("''"), StrPtr("")},
		{"expression", StrPtr("CURRENT_TIMESTAMP"), StrPtr("CURRENT_TIMESTAMP")},
		{"function call", StrPtr("nextval('seq')"), StrPtr("nextval('seq')")},
		{"mismatched quotes", StrPtr(`'x"`), StrPtr(`'x"`)},
		{"lone quote", StrPtr("'"), StrPtr("'")},
		{"number", StrPtr("42"), StrPtr("42")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDefaultValue(tt.raw))
		})
	}
}

func TestNormalizeDataType(t *testing.T) {
	tests := map[string]string{
		"VARCHAR(255)":                "varchar",
		"decimal(10,2)":               "decimal",
		"int(11) unsigned":            "int unsigned",
		"tinyint(1)":                  "boolean",
		"tinyint(4)":                  "tinyint",
		"timestamp(6) with time zone": "timestamp with time zone",
		"  Text ":                     "text",
		"enum('a','b')":               "enum",
	}
	for raw, want := range tests {
		assert.Equal(t, want, NormalizeDataType(raw), raw)
	}
}

func TestDedupeColumns(t *testing.T) {
	cols := []Column{
		{Table: "orders", Name: "id"},
		{Table: "orders", Name: "customer_id"},
		{Table: "orders", Name: "customer_id", ForeignKeyTable: StrPtr("customers"), ForeignKeyColumn: StrPtr("id")},
		{Table: "orders", Name: "id", DataType: "later duplicate"},
		{Table: "customers", Name: "id"},
	}

	got := DedupeColumns(cols)
	require.Len(t, got, 3)

	assert.Equal(t, "id", got[0].Name)
	assert.Empty(t, got[0].DataType, "first row wins without foreign-key info")
	assert.Equal(t, "customer_id", got[1].Name)
	require.NotNil(t, got[1].ForeignKeyTable)
	assert.Equal(t, "customers", *got[1].ForeignKeyTable)
	assert.Equal(t, "customers", got[2].Table)

	assert.Len(t, cols, 5, "input is not modified")
}

func TestApplyKeyConstraints(t *testing.T) {
	cols := []Column{
		{Table: "t", Name: "a"},
		{Table: "t", Name: "b"},
		{Table: "t", Name: "c"},
		{Table: "t", Name: "d"},
		{Table: "u", Name: "a"},
	}
	ApplyKeyConstraints(cols, []KeyConstraint{
		{Table: "t", Name: "pk", Primary: true, Columns: []string{"a", "b"}},
		{Table: "t", Name: "uq_c", Columns: []string{"c"}},
		{Table: "t", Name: "uq_cd", Columns: []string{"c", "d"}},
	})

	assert.True(t, cols[0].IsPrimaryKey)
	assert.True(t, cols[1].IsPrimaryKey)
	assert.False(t, cols[0].IsUnique, "primary parts are not flagged unique")
	assert.True(t, cols[2].IsUnique)
	assert.False(t, cols[3].IsUnique)
	assert.False(t, cols[4].IsPrimaryKey, "constraints apply to their own table only")
}

func TestAttachForeignKeys(t *testing.T) {
	cols := []Column{
		{Table: "lines", Name: "order_id"},
		{Table: "lines", Name: "sku", ForeignKeyTable: StrPtr("products"), ForeignKeyColumn: StrPtr("sku")},
	}
	AttachForeignKeys(cols, []ForeignKey{
		{Table: "lines", Column: "order_id", ForeignKeyTable: "orders", ForeignKeyColumn: "id"},
		{Table: "lines", Column: "order_id", ForeignKeyTable: "archive", ForeignKeyColumn: "id"},
		{Table: "lines", Column: "sku", ForeignKeyTable: "catalog", ForeignKeyColumn: "sku"},
	})

	assert.Equal(t, "orders", *cols[0].ForeignKeyTable)
	assert.Equal(t, "products", *cols[1].ForeignKeyTable, "existing reference is kept")
}

func TestPrimaryKeyOf(t *testing.T) {
	assert.Empty(t, PrimaryKeyOf(nil))
	assert.Equal(t, "id", PrimaryKeyOf([]string{"id"}))
	assert.Empty(t, PrimaryKeyOf([]string{"a", "b"}))
}

func TestNewUnsupportedType(t *testing.T) {
	err := NewUnsupportedType("orders", "shape", "coltype 99")

	assert.True(t, errs.IsUnsupportedType(err))

	var detail *UnsupportedTypeError
	require.True(t, errors.As(err, &detail))
	assert.Equal(t, "orders", detail.Table)
	assert.Equal(t, "shape", detail.Column)
	assert.Contains(t, err.Error(), "coltype 99")
}

func TestFindColumn(t *testing.T) {
	cols := []Column{{Table: "t", Name: "a"}, {Table: "u", Name: "a", DataType: "int"}}

	c, err := FindColumn(cols, "u", "a")
	require.NoError(t, err)
	assert.Equal(t, "int", c.DataType)

	_, err = FindColumn(cols, "t", "b")
	assert.True(t, errs.IsNotFound(err))
}
