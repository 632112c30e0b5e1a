// Package mysql inspects MySQL and MariaDB through information_schema.
package mysql

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/inspector"
)

func init() {
	inspector.Register(database.DriverMySQL, func(db database.DB, opts inspector.Options) (inspector.Inspector, error) {
		return New(db, opts), nil
	})
}

// Inspector implements inspector.Inspector for MySQL.
type Inspector struct {
	db     database.DB
	schema string
}

// New returns a MySQL inspector. An empty opts.Schema means the connection's
// current database.
func New(db database.DB, opts inspector.Options) *Inspector {
	return &Inspector{db: db, schema: opts.Schema}
}

// scope returns the schema predicate for col and its arguments, followed
// by an optional table predicate.
func (m *Inspector) scope(schemaCol, tableCol, table string) (string, []any) {
	var args []any
	where := schemaCol + " = DATABASE()"
	if m.schema != "" {
		where = schemaCol + " = ?"
		args = append(args, m.schema)
	}
	if table != "" {
		where += " AND " + tableCol + " = ?"
		args = append(args, table)
	}
	return where, args
}

// Tables lists base tables of the schema.
func (m *Inspector) Tables(ctx context.Context) ([]inspector.Table, error) {
	where, args := m.scope("table_schema", "table_name", "")
	q := `
		SELECT table_name, table_schema
		FROM information_schema.tables
		WHERE ` + where + `
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := m.db.Query(ctx, q, args...)
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

// TableExists reports whether table is a base table of the schema.
func (m *Inspector) TableExists(ctx context.Context, table string) (bool, error) {
	where, args := m.scope("table_schema", "table_name", table)
	ok, err := inspector.QueryCount(ctx, m.db, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE `+where+`
		  AND table_type = 'BASE TABLE'`, args...)
	if err != nil {
		return false, fmt.Errorf("table exists: %w", err)
	}
	return ok, nil
}

// Columns enumerates (table, column) pairs in ordinal order.
func (m *Inspector) Columns(ctx context.Context, table string) ([]inspector.ColumnRef, error) {
	where, args := m.scope("c.table_schema", "c.table_name", table)
	q := `
		SELECT c.table_name, c.column_name
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema
		 AND t.table_name = c.table_name
		 AND t.table_type = 'BASE TABLE'
		WHERE ` + where + `
		ORDER BY c.table_name, c.ordinal_position`

	rows, err := m.db.Query(ctx, q, args...)
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

// ColumnInfo returns column metadata joined with the foreign keys each
// column takes part in. A column referenced by several constraints comes
// back once; the join rows are folded by DedupeColumns.
func (m *Inspector) ColumnInfo(ctx context.Context, table string) ([]inspector.Column, error) {
	where, args := m.scope("c.table_schema", "c.table_name", table)
	q := `
		SELECT c.table_name,
		       c.column_name,
		       c.column_type,
		       c.column_default,
		       c.is_nullable = 'YES',
		       c.character_maximum_length,
		       c.numeric_precision,
		       c.numeric_scale,
		       c.extra,
		       c.generation_expression,
		       c.column_comment,
		       fk.referenced_table_name,
		       fk.referenced_column_name
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema
		 AND t.table_name = c.table_name
		 AND t.table_type = 'BASE TABLE'
		LEFT JOIN information_schema.key_column_usage fk
		  ON fk.table_schema = c.table_schema
		 AND fk.table_name = c.table_name
		 AND fk.column_name = c.column_name
		 AND fk.referenced_table_name IS NOT NULL
		WHERE ` + where + `
		ORDER BY c.table_name, c.ordinal_position`

	rows, err := m.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch columns: %w", err)
	}
	defer rows.Close()

	var cols []inspector.Column
	for rows.Next() {
		var (
			c                         inspector.Column
			columnType, extra         string
			rawDefault, genExpr, note *string
		)
		if err := rows.Scan(&c.Table, &c.Name, &columnType, &rawDefault, &c.IsNullable,
			&c.MaxLength, &c.NumericPrecision, &c.NumericScale, &extra, &genExpr, &note,
			&c.ForeignKeyTable, &c.ForeignKeyColumn); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}

		c.DataType = inspector.NormalizeDataType(columnType)
		c.HasAutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		c.IsGenerated = isGenerated(extra)
		if c.IsGenerated && genExpr != nil && *genExpr != "" {
			c.GenerationExpression = genExpr
		}
		if note != nil && *note != "" {
			c.Comment = note
		}
		c.DefaultValue = inspector.ParseDefaultValue(rawDefault)
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cols = inspector.DedupeColumns(cols)

	keys, err := m.fetchKeyConstraints(ctx, table)
	if err != nil {
		return nil, err
	}
	inspector.ApplyKeyConstraints(cols, keys)

	return cols, nil
}

// isGenerated matches STORED GENERATED and VIRTUAL GENERATED but not the
// DEFAULT_GENERATED marker MySQL 8 puts on expression defaults.
func isGenerated(extra string) bool {
	e := strings.ToUpper(extra)
	return strings.Contains(e, "STORED GENERATED") || strings.Contains(e, "VIRTUAL GENERATED")
}

// Column returns a single column of table.
func (m *Inspector) Column(ctx context.Context, table, column string) (inspector.Column, error) {
	cols, err := m.ColumnInfo(ctx, table)
	if err != nil {
		return inspector.Column{}, err
	}
	return inspector.FindColumn(cols, table, column)
}

// ColumnExists reports whether table has column.
func (m *Inspector) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	where, args := m.scope("table_schema", "table_name", table)
	ok, err := inspector.QueryCount(ctx, m.db, `
		SELECT COUNT(*)
		FROM information_schema.columns
		WHERE `+where+`
		  AND column_name = ?`, append(args, column)...)
	if err != nil {
		return false, fmt.Errorf("column exists: %w", err)
	}
	return ok, nil
}

// PrimaryKey returns the single primary-key column of table, or "".
func (m *Inspector) PrimaryKey(ctx context.Context, table string) (string, error) {
	keys, err := m.fetchKeyConstraints(ctx, table)
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

// ForeignKeys lists foreign-key column pairs in key order.
func (m *Inspector) ForeignKeys(ctx context.Context, table string) ([]inspector.ForeignKey, error) {
	where, args := m.scope("k.table_schema", "k.table_name", table)
	q := `
		SELECT k.table_name,
		       k.column_name,
		       k.referenced_table_name,
		       k.referenced_column_name,
		       k.constraint_name,
		       r.update_rule,
		       r.delete_rule
		FROM information_schema.key_column_usage k
		JOIN information_schema.referential_constraints r
		  ON r.constraint_schema = k.constraint_schema
		 AND r.constraint_name = k.constraint_name
		 AND r.table_name = k.table_name
		WHERE ` + where + `
		  AND k.referenced_table_name IS NOT NULL
		ORDER BY k.table_name, k.constraint_name, k.ordinal_position`

	rows, err := m.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []inspector.ForeignKey
	for rows.Next() {
		var fk inspector.ForeignKey
		if err := rows.Scan(&fk.Table, &fk.Column, &fk.ForeignKeyTable, &fk.ForeignKeyColumn,
			&fk.ConstraintName, &fk.OnUpdate, &fk.OnDelete); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// fetchKeyConstraints reads unique indexes, PRIMARY included, from
// information_schema.statistics.
func (m *Inspector) fetchKeyConstraints(ctx context.Context, table string) ([]inspector.KeyConstraint, error) {
	where, args := m.scope("table_schema", "table_name", table)
	q := `
		SELECT table_name, index_name, column_name
		FROM information_schema.statistics
		WHERE ` + where + `
		  AND non_unique = 0
		ORDER BY table_name, index_name, seq_in_index`

	rows, err := m.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch key constraints: %w", err)
	}
	defer rows.Close()

	var keys []inspector.KeyConstraint
	for rows.Next() {
		var tab, name, col string
		if err := rows.Scan(&tab, &name, &col); err != nil {
			return nil, fmt.Errorf("scan key constraint: %w", err)
		}
		if n := len(keys); n > 0 && keys[n-1].Table == tab && keys[n-1].Name == name {
			keys[n-1].Columns = append(keys[n-1].Columns, col)
			continue
		}
		keys = append(keys, inspector.KeyConstraint{Table: tab, Name: name, Primary: name == "PRIMARY", Columns: []string{col}})
	}
	return keys, rows.Err()
}
