// Package postgres inspects PostgreSQL through pg_catalog and
// information_schema.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/inspector"
)

func init() {
	inspector.Register(database.DriverPostgres, func(db database.DB, opts inspector.Options) (inspector.Inspector, error) {
		return New(db, opts), nil
	})
}

const defaultSchema = "public"

// Inspector implements inspector.Inspector for PostgreSQL.
type Inspector struct {
	db     database.DB
	schema string
}

// New returns a PostgreSQL inspector scoped to opts.Schema ("public" when
// empty).
func New(db database.DB, opts inspector.Options) *Inspector {
	return &Inspector{db: db, schema: opts.SchemaOr(defaultSchema)}
}

// withTable appends "AND <col> = $n" when table is set.
func (p *Inspector) withTable(q, col, table string, args []any) (string, []any) {
	if table == "" {
		return q, args
	}
	args = append(args, table)
	return q + fmt.Sprintf("\n\t  AND %s = $%d", col, len(args)), args
}

// Tables lists ordinary and partitioned tables in the schema.
func (p *Inspector) Tables(ctx context.Context) ([]inspector.Table, error) {
	const q = `
		SELECT c.relname::text, n.nspname::text
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind IN ('r', 'p')
		  AND NOT c.relispartition
		  AND n.nspname = $1
		ORDER BY c.relname`

	rows, err := p.db.Query(ctx, q, p.schema)
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

// TableExists reports whether table is a table in the schema.
func (p *Inspector) TableExists(ctx context.Context, table string) (bool, error) {
	const q = `
		SELECT COUNT(*)
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind IN ('r', 'p')
		  AND n.nspname = $1
		  AND c.relname = $2`

	ok, err := inspector.QueryCount(ctx, p.db, q, p.schema, table)
	if err != nil {
		return false, fmt.Errorf("table exists: %w", err)
	}
	return ok, nil
}

// Columns enumerates (table, column) pairs in attnum order.
func (p *Inspector) Columns(ctx context.Context, table string) ([]inspector.ColumnRef, error) {
	q, args := p.withTable(`
		SELECT c.relname::text, a.attname::text
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind IN ('r', 'p')
		  AND a.attnum > 0
		  AND NOT a.attisdropped
		  AND n.nspname = $1`, "c.relname", table, []any{p.schema})
	q += "\n\t\tORDER BY c.relname, a.attnum"

	rows, err := p.db.Query(ctx, q, args...)
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
func (p *Inspector) ColumnInfo(ctx context.Context, table string) ([]inspector.Column, error) {
	cols, err := p.fetchColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	keys, err := p.fetchKeyConstraints(ctx, table)
	if err != nil {
		return nil, err
	}
	inspector.ApplyKeyConstraints(cols, keys)

	fks, err := p.ForeignKeys(ctx, table)
	if err != nil {
		return nil, err
	}
	inspector.AttachForeignKeys(cols, fks)

	return inspector.DedupeColumns(cols), nil
}

// Column returns a single column of table.
func (p *Inspector) Column(ctx context.Context, table, column string) (inspector.Column, error) {
	cols, err := p.ColumnInfo(ctx, table)
	if err != nil {
		return inspector.Column{}, err
	}
	return inspector.FindColumn(cols, table, column)
}

// ColumnExists reports whether table has column.
func (p *Inspector) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	const q = `
		SELECT COUNT(*)
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind IN ('r', 'p')
		  AND a.attnum > 0
		  AND NOT a.attisdropped
		  AND n.nspname = $1
		  AND c.relname = $2
		  AND a.attname = $3`

	ok, err := inspector.QueryCount(ctx, p.db, q, p.schema, table, column)
	if err != nil {
		return false, fmt.Errorf("column exists: %w", err)
	}
	return ok, nil
}

// PrimaryKey returns the single primary-key column of table, or "".
func (p *Inspector) PrimaryKey(ctx context.Context, table string) (string, error) {
	keys, err := p.fetchKeyConstraints(ctx, table)
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
func (p *Inspector) ForeignKeys(ctx context.Context, table string) ([]inspector.ForeignKey, error) {
	q, args := p.withTable(`
		SELECT cl.relname::text, a.attname::text, rcl.relname::text, ra.attname::text,
		       con.conname::text, k.ord, con.confupdtype::text, con.confdeltype::text
		FROM pg_constraint con
		JOIN pg_class cl ON cl.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = cl.relnamespace
		JOIN pg_class rcl ON rcl.oid = con.confrelid
		JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, refattnum, ord) ON true
		JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		JOIN pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.refattnum
		WHERE con.contype = 'f'
		  AND n.nspname = $1`, "cl.relname", table, []any{p.schema})
	q += "\n\t\tORDER BY cl.relname, con.conname, k.ord"

	rows, err := p.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []inspector.ForeignKey
	for rows.Next() {
		var (
			fk               inspector.ForeignKey
			ord              int64
			updRule, delRule string
		)
		if err := rows.Scan(&fk.Table, &fk.Column, &fk.ForeignKeyTable, &fk.ForeignKeyColumn,
			&fk.ConstraintName, &ord, &updRule, &delRule); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fk.OnUpdate = referentialAction(updRule)
		fk.OnDelete = referentialAction(delRule)
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// --- catalog queries ---

func (p *Inspector) fetchColumns(ctx context.Context, table string) ([]inspector.Column, error) {
	q, args := p.withTable(`
		SELECT c.table_name::text,
		       c.column_name::text,
		       c.data_type::text,
		       c.udt_name::text,
		       c.column_default::text,
		       c.is_nullable = 'YES',
		       c.character_maximum_length::int8,
		       c.numeric_precision::int8,
		       c.numeric_scale::int8,
		       c.is_generated = 'ALWAYS',
		       c.generation_expression::text,
		       c.is_identity = 'YES',
		       col_description(format('%I.%I', c.table_schema, c.table_name)::regclass, c.ordinal_position::int)
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema
		 AND t.table_name = c.table_name
		 AND t.table_type = 'BASE TABLE'
		WHERE c.table_schema = $1`, "c.table_name", table, []any{p.schema})
	q += "\n\t\tORDER BY c.table_name, c.ordinal_position"

	rows, err := p.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch columns: %w", err)
	}
	defer rows.Close()

	var cols []inspector.Column
	for rows.Next() {
		var (
			c                 inspector.Column
			dataType, udtName string
			rawDefault        *string
			identity          bool
		)
		if err := rows.Scan(&c.Table, &c.Name, &dataType, &udtName, &rawDefault, &c.IsNullable,
			&c.MaxLength, &c.NumericPrecision, &c.NumericScale, &c.IsGenerated,
			&c.GenerationExpression, &identity, &c.Comment); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}

		c.DataType = normalizeType(dataType, udtName)
		c.HasAutoIncrement = identity || (rawDefault != nil && strings.HasPrefix(*rawDefault, "nextval("))
		if c.IsGenerated {
			rawDefault = nil
		}
		c.DefaultValue = inspector.ParseDefaultValue(stripCast(rawDefault))
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// fetchKeyConstraints reads the primary key and every unique index, whether
// it backs a constraint or was created with CREATE UNIQUE INDEX. Partial and
// expression indexes are skipped; INCLUDE columns are not key parts.
func (p *Inspector) fetchKeyConstraints(ctx context.Context, table string) ([]inspector.KeyConstraint, error) {
	q, args := p.withTable(`
		SELECT cl.relname::text, COALESCE(con.conname, ic.relname)::text AS key_name,
		       ix.indisprimary, a.attname::text
		FROM pg_index ix
		JOIN pg_class cl ON cl.oid = ix.indrelid
		JOIN pg_class ic ON ic.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = cl.relnamespace
		LEFT JOIN pg_constraint con ON con.conindid = ix.indexrelid AND con.contype IN ('p', 'u')
		JOIN LATERAL unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord) ON k.ord <= ix.indnkeyatts
		JOIN pg_attribute a ON a.attrelid = ix.indrelid AND a.attnum = k.attnum
		WHERE ix.indisunique
		  AND ix.indpred IS NULL
		  AND ix.indexprs IS NULL
		  AND n.nspname = $1`, "cl.relname", table, []any{p.schema})
	q += "\n\t\tORDER BY cl.relname, key_name, k.ord"

	rows, err := p.db.Query(ctx, q, args...)
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

// normalizeType prefers the udt name for arrays and user-defined types,
// which information_schema reports only as ARRAY / USER-DEFINED.
func normalizeType(dataType, udtName string) string {
	switch dataType {
	case "ARRAY":
		return strings.TrimPrefix(udtName, "_") + "[]"
	case "USER-DEFINED":
		return udtName
	}
	return inspector.NormalizeDataType(dataType)
}

var literalCast = regexp.MustCompile(`^('(?:[^']|'')*'|-?[0-9.]+|\(-?[0-9.]+\)|NULL)::[a-z"][a-zA-Z0-9_ ".]*(\[\])?(\([0-9, ]+\))?$`)

// stripCast drops the type cast PostgreSQL appends to literal defaults,
// e.g. 'new'::character varying becomes 'new'. Expressions are untouched.
func stripCast(raw *string) *string {
	if raw == nil {
		return nil
	}
	m := literalCast.FindStringSubmatch(*raw)
	if m == nil {
		return raw
	}
	v := strings.Trim(m[1], "()")
	if strings.HasPrefix(m[1], "'") {
		v = m[1]
	}
	return &v
}

// referentialAction maps pg_constraint confupdtype/confdeltype codes.
func referentialAction(code string) *string {
	switch code {
	case "a":
		return inspector.StrPtr("NO ACTION")
	case "r":
		return inspector.StrPtr("RESTRICT")
	case "c":
		return inspector.StrPtr("CASCADE")
	case "n":
		return inspector.StrPtr("SET NULL")
	case "d":
		return inspector.StrPtr("SET DEFAULT")
	}
	return nil
}
