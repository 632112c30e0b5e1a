package inspector

import (
	"maps"
	"slices"
)

// Table identifies a user relation.
type Table struct {
	Name   string `json:"name" yaml:"name"`
	Schema string `json:"schema" yaml:"schema"`
}

// ColumnRef is one entry of the flat column enumeration.
type ColumnRef struct {
	Table  string `json:"table" yaml:"table"`
	Column string `json:"column" yaml:"column"`
}

// Column is the dialect-independent description of one physical column.
//
// DataType is always normalized (see NormalizeDataType). Optional catalog
// facts are pointers; nil means the catalog has no value for them.
type Column struct {
	Name                 string  `json:"name" yaml:"name"`
	Table                string  `json:"table" yaml:"table"`
	DataType             string  `json:"data_type" yaml:"data_type"`
	DefaultValue         *string `json:"default_value" yaml:"default_value"`
	GenerationExpression *string `json:"generation_expression,omitempty" yaml:"generation_expression,omitempty"`
	MaxLength            *int64  `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	NumericPrecision     *int64  `json:"numeric_precision,omitempty" yaml:"numeric_precision,omitempty"`
	NumericScale         *int64  `json:"numeric_scale,omitempty" yaml:"numeric_scale,omitempty"`
	IsGenerated          bool    `json:"is_generated" yaml:"is_generated"`
	IsNullable           bool    `json:"is_nullable" yaml:"is_nullable"`
	IsUnique             bool    `json:"is_unique" yaml:"is_unique"`
	IsPrimaryKey         bool    `json:"is_primary_key" yaml:"is_primary_key"`
	HasAutoIncrement     bool    `json:"has_auto_increment" yaml:"has_auto_increment"`
	ForeignKeyTable      *string `json:"foreign_key_table,omitempty" yaml:"foreign_key_table,omitempty"`
	ForeignKeyColumn     *string `json:"foreign_key_column,omitempty" yaml:"foreign_key_column,omitempty"`
	Comment              *string `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// ForeignKey is a single column-level referential constraint. Composite
// constraints appear as one ForeignKey per column pair, in key-part order.
type ForeignKey struct {
	Table            string  `json:"table" yaml:"table"`
	Column           string  `json:"column" yaml:"column"`
	ForeignKeyTable  string  `json:"foreign_key_table" yaml:"foreign_key_table"`
	ForeignKeyColumn string  `json:"foreign_key_column" yaml:"foreign_key_column"`
	ConstraintName   string  `json:"constraint_name" yaml:"constraint_name"`
	OnUpdate         *string `json:"on_update" yaml:"on_update"`
	OnDelete         *string `json:"on_delete" yaml:"on_delete"`
}

// TableOverview is one entry of an Overview. Primary is empty when the
// table has no primary key or the key spans several columns.
type TableOverview struct {
	Primary string            `json:"primary" yaml:"primary"`
	Columns map[string]Column `json:"columns" yaml:"columns"`
}

// Overview maps table name to its TableOverview.
type Overview map[string]TableOverview

// Tables returns the table names of o in lexical order.
func (o Overview) Tables() []string {
	return slices.Sorted(maps.Keys(o))
}

// StrPtr returns a pointer to s. Dialect packages use it to fill optional
// Column fields.
func StrPtr(s string) *string { return &s }

// Int64Ptr returns a pointer to n.
func Int64Ptr(n int64) *int64 { return &n }
