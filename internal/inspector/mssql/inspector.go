// Package mssql inspects SQL Server and Azure SQL through the sys.* catalog
// views.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/inspector"
)

func init() {
	inspector.Register(database.DriverMSSQL, func(db database.DB, opts inspector.Options) (inspector.Inspector, error) {
		return New(db, opts), nil
	})
}

const defaultSchema = "dbo"

// Inspector implements inspector.Inspector for SQL Server.
type Inspector struct {
	db     database.DB
	schema string
}

// New returns a SQL Server inspector scoped to opts.Schema ("dbo" when
// empty).
func New(db database.DB, opts inspector.Options) *Inspector {
	return &Inspector{db: db, schema: opts.SchemaOr(defaultSchema)}
}

// scope returns the named arguments shared by every query; an empty table
// disables the table filter through "@table = ''".
func (s *Inspector) scope(table string) []any {
	return []any{sql.Named("schema", s.schema), sql.Named("table", table)}
}

// Tables lists user tables of the schema.
func (s *Inspector) Tables(ctx context.Context) ([]inspector.Table, error) {
	const q = `
	SET NOCOUNT ON;
	SELECT t.name, SCHEMA_NAME(t.schema_id)
	FROM sys.tables t
	WHERE t.is_ms_shipped = 0
	  AND SCHEMA_NAME(t.schema_id) = @schema
	ORDER BY t.name`

	rows, err := s.db.Query(ctx, q, sql.Named("schema", s.schema))
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []inspector.Table
	for rows.Next() {
		var t inspector.Table
		if err := rows.Scan(&t.Name, &t.Schema); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// TableExists reports whether table is a user table of the schema.
func (s *Inspector) TableExists(ctx context.Context, table string) (bool, error) {
	const q = `
	SET NOCOUNT ON;
	SELECT COUNT(*)
	FROM sys.tables t
	WHERE t.is_ms_shipped = 0
	  AND SCHEMA_NAME(t.schema_id) = @schema
	  AND t.name = @table`

	ok, err := inspector.QueryCount(ctx, s.db, q, s.scope(table)...)
	if err != nil {
		return false, fmt.Errorf("table exists: %w", err)
	}
	return ok, nil
}

// Columns enumerates (table, column) pairs in column_id order.
func (s *Inspector) Columns(ctx context.Context, table string) ([]inspector.ColumnRef, error) {
	const q = `
	SET NOCOUNT ON;
	SELECT t.name, c.name
	FROM sys.columns c
	INNER JOIN sys.tables t ON t.object_id = c.object_id
	WHERE t.is_ms_shipped = 0
	  AND SCHEMA_NAME(t.schema_id) = @schema
	  AND (@table = '' OR t.name = @table)
	ORDER BY t.name, c.column_id`

	rows, err := s.db.Query(ctx, q, s.scope(table)...)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	var refs []inspector.ColumnRef
	for rows.Next() {
		var r inspector.ColumnRef
		if err := rows.Scan(&r.Table, &r.Column); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// ColumnInfo returns full column metadata for table, or every table when
// table is empty.
func (s *Inspector) ColumnInfo(ctx context.Context, table string) ([]inspector.Column, error) {
	const q = `
	SET NOCOUNT ON;
	SELECT t.name,
	       c.name,
	       tp.name,
	       c.max_length,
	       c.precision,
	       c.scale,
	       c.is_nullable,
	       c.is_identity,
	       c.is_computed,
	       cc.definition,
	       dc.definition,
	       CAST(ep.value AS NVARCHAR(4000))
	FROM sys.columns c
	INNER JOIN sys.tables t ON t.object_id = c.object_id
	INNER JOIN sys.types tp ON tp.user_type_id = c.user_type_id
	LEFT JOIN sys.computed_columns cc ON cc.object_id = c.object_id AND cc.column_id = c.column_id
	LEFT JOIN sys.default_constraints dc ON dc.object_id = c.default_object_id
	LEFT JOIN sys.extended_properties ep
	       ON ep.major_id = c.object_id AND ep.minor_id = c.column_id
	      AND ep.class = 1 AND ep.name = 'MS_Description'
	WHERE t.is_ms_shipped = 0
	  AND SCHEMA_NAME(t.schema_id) = @schema
	  AND (@table = '' OR t.name = @table)
	ORDER BY t.name, c.column_id`

	rows, err := s.db.Query(ctx, q, s.scope(table)...)
	if err != nil {
		return nil, fmt.Errorf("fetch columns: %w", err)
	}
	defer rows.Close()

	var cols []inspector.Column
	for rows.Next() {
		var (
			c                           inspector.Column
			typeName                    string
			maxLength, precision, scale int64
			computedDef, defaultDef     *string
		)
		if err := rows.Scan(&c.Table, &c.Name, &typeName, &maxLength, &precision, &scale,
			&c.IsNullable, &c.HasAutoIncrement, &c.IsGenerated, &computedDef, &defaultDef, &c.Comment); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}

		c.DataType = inspector.NormalizeDataType(typeName)
		c.MaxLength = charLength(c.DataType, maxLength)
		if precision > 0 && isNumeric(c.DataType) {
			c.NumericPrecision = inspector.Int64Ptr(precision)
			c.NumericScale = inspector.Int64Ptr(scale)
		}
		if c.IsGenerated {
			c.GenerationExpression = computedDef
		}
		c.DefaultValue = inspector.ParseDefaultValue(unwrapParens(defaultDef))
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	keys, err := s.fetchKeyConstraints(ctx, table)
	if err != nil {
		return nil, err
	}
	inspector.ApplyKeyConstraints(cols, keys)

	fks, err := s.ForeignKeys(ctx, table)
	if err != nil {
		return nil, err
	}
	inspector.AttachForeignKeys(cols, fks)

	return inspector.DedupeColumns(cols), nil
}

// Column returns a single column of table.
func (s *Inspector) Column(ctx context.Context, table, column string) (inspector.Column, error) {
	cols, err := s.ColumnInfo(ctx, table)
	if err != nil {
		return inspector.Column{}, err
	}
	return inspector.FindColumn(cols, table, column)
}

// ColumnExists reports whether table has column.
func (s *Inspector) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	const q = `
	SET NOCOUNT ON;
	SELECT COUNT(*)
	FROM sys.columns c
	WHERE c.object_id = OBJECT_ID(QUOTENAME(@schema) + N'.' + QUOTENAME(@table))
	  AND c.name = @column`

	ok, err := inspector.QueryCount(ctx, s.db, q, append(s.scope(table), sql.Named("column", column))...)
	if err != nil {
		return false, fmt.Errorf("column exists: %w", err)
	}
	return ok, nil
}

// PrimaryKey returns the single primary-key column of table, or "".
func (s *Inspector) PrimaryKey(ctx context.Context, table string) (string, error) {
	keys, err := s.fetchKeyConstraints(ctx, table)
	if err != nil {
		return "", err
	}
	for _, k := range keys {
		if k.Primary {
			return inspector.PrimaryKeyOf(k.Columns), nil
		}
	}
	return "", nil
}

// ForeignKeys lists foreign-key column pairs in constraint_column_id order.
func (s *Inspector) ForeignKeys(ctx context.Context, table string) ([]inspector.ForeignKey, error) {
	const q = `
	SET NOCOUNT ON;
	SELECT OBJECT_NAME(fk.parent_object_id),
	       COL_NAME(fkc.parent_object_id, fkc.parent_column_id),
	       OBJECT_NAME(fk.referenced_object_id),
	       COL_NAME(fkc.referenced_object_id, fkc.referenced_column_id),
	       fk.name,
	       fk.update_referential_action_desc,
	       fk.delete_referential_action_desc
	FROM sys.foreign_keys fk
	INNER JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
	WHERE fk.is_ms_shipped = 0
	  AND SCHEMA_NAME(fk.schema_id) = @schema
	  AND (@table = '' OR OBJECT_NAME(fk.parent_object_id) = @table)
	ORDER BY OBJECT_NAME(fk.parent_object_id), fk.name, fkc.constraint_column_id`

	rows, err := s.db.Query(ctx, q, s.scope(table)...)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []inspector.ForeignKey
	for rows.Next() {
		var (
			fk               inspector.ForeignKey
			updRule, delRule string
		)
		if err := rows.Scan(&fk.Table, &fk.Column, &fk.ForeignKeyTable, &fk.ForeignKeyColumn,
			&fk.ConstraintName, &updRule, &delRule); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fk.OnUpdate = referentialAction(updRule)
		fk.OnDelete = referentialAction(delRule)
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

func (s *Inspector) fetchKeyConstraints(ctx context.Context, table string) ([]inspector.KeyConstraint, error) {
	const q = `
	SET NOCOUNT ON;
	SELECT t.name, i.name, i.is_primary_key, c.name
	FROM sys.indexes i
	INNER JOIN sys.tables t ON t.object_id = i.object_id
	INNER JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	INNER JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
	WHERE (i.is_primary_key = 1 OR i.is_unique_constraint = 1 OR i.is_unique = 1)
	  AND ic.is_included_column = 0
	  AND t.is_ms_shipped = 0
	  AND SCHEMA_NAME(t.schema_id) = @schema
	  AND (@table = '' OR t.name = @table)
	ORDER BY t.name, i.name, ic.key_ordinal`

	rows, err := s.db.Query(ctx, q, s.scope(table)...)
	if err != nil {
		return nil, fmt.Errorf("fetch key constraints: %w", err)
	}
	defer rows.Close()

	var keys []inspector.KeyConstraint
	for rows.Next() {
		var (
			tab, name, col string
			primary        bool
		)
		if err := rows.Scan(&tab, &name, &primary, &col); err != nil {
			return nil, fmt.Errorf("scan key constraint: %w", err)
		}
		if n := len(keys); n > 0 && keys[n-1].Table == tab && keys[n-1].Name == name {
			keys[n-1].Columns = append(keys[n-1].Columns, col)
			continue
		}
		keys = append(keys, inspector.KeyConstraint{Table: tab, Name: name, Primary: primary, Columns: []string{col}})
	}
	return keys, rows.Err()
}

// unwrapParens strips the redundant parentheses SQL Server stores around
// default definitions: ((0)) becomes 0 and ('x') becomes 'x'.
func unwrapParens(def *string) *string {
	if def == nil {
		return nil
	}
	v := strings.TrimSpace(*def)
	for len(v) >= 2 && v[0] == '(' && v[len(v)-1] == ')' && balanced(v[1:len(v)-1]) {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	return &v
}

// balanced reports whether s has no unmatched closing parenthesis, so
// that "(a)+(b)" is not unwrapped into "a)+(b".
func balanced(s string) bool {
	depth := 0
	inQuote := false
	for _, r := range s {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case inQuote:
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// charLength converts sys.columns.max_length (bytes, -1 for MAX) into a
// character length for string types.
func charLength(dataType string, maxLength int64) *int64 {
	switch dataType {
	case "char", "varchar", "binary", "varbinary":
		if maxLength < 0 {
			return nil
		}
		return inspector.Int64Ptr(maxLength)
	case "nchar", "nvarchar":
		if maxLength < 0 {
			return nil
		}
		return inspector.Int64Ptr(maxLength / 2)
	}
	return nil
}

func isNumeric(dataType string) bool {
	switch dataType {
	case "decimal", "numeric", "money", "smallmoney", "tinyint", "smallint", "int", "bigint", "float", "real":
		return true
	}
	return false
}

// referentialAction maps *_referential_action_desc values such as SET_NULL.
func referentialAction(desc string) *string {
	if desc == "" {
		return nil
	}
	return inspector.StrPtr(strings.ReplaceAll(desc, "_", " "))
}
