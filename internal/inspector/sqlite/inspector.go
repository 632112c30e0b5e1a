// Package sqlite inspects SQLite databases through sqlite_master and the
// table-valued pragma functions.
package sqlite

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/inspector"
)

func init() {
	inspector.Register(database.DriverSQLite, func(db database.DB, opts inspector.Options) (inspector.Inspector, error) {
		return New(db, opts), nil
	})
}

const defaultSchema = "main"

// userTables selects user tables; "?1" is the optional table filter.
const userTables = `
	FROM sqlite_master m
	WHERE m.type = 'table'
	  AND m.name NOT LIKE 'sqlite_%'
	  AND (?1 = '' OR m.name = ?1)`

// Inspector implements inspector.Inspector for SQLite. SQLite has a single
// namespace per attached file; Schema is only echoed back in Tables.
type Inspector struct {
	db     database.DB
	schema string
}

// New returns a SQLite inspector.
func New(db database.DB, opts inspector.Options) *Inspector {
	return &Inspector{db: db, schema: opts.SchemaOr(defaultSchema)}
}

func (s *Inspector) Tables(ctx context.Context) ([]inspector.Table, error) {
	rows, err := s.db.Query(ctx, "SELECT m.name"+userTables+"\n\tORDER BY m.name", "")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []inspector.Table
	for rows.Next() {
		t := inspector.Table{Schema: s.schema}
		if err := rows.Scan(&t.Name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (s *Inspector) TableExists(ctx context.Context, table string) (bool, error) {
	if table == "" {
		return false, nil
	}
	ok, err := inspector.QueryCount(ctx, s.db, "SELECT COUNT(*)"+userTables, table)
	if err != nil {
		return false, fmt.Errorf("table exists: %w", err)
	}
	return ok, nil
}

func (s *Inspector) Columns(ctx context.Context, table string) ([]inspector.ColumnRef, error) {
	const q = `
	SELECT m.name, p.name
	FROM sqlite_master m
	JOIN pragma_table_xinfo(m.name) p
	WHERE m.type = 'table'
	  AND m.name NOT LIKE 'sqlite_%'
	  AND (?1 = '' OR m.name = ?1)
	  AND p.hidden <> 1
	ORDER BY m.name, p.cid`

	rows, err := s.db.Query(ctx, q, table)
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

// rawColumn is one pragma_table_xinfo row.
type rawColumn struct {
	table, name, typ string
	notNull          bool
	dflt             *string
	pk               int64
	hidden           int64
}

func (s *Inspector) fetchColumns(ctx context.Context, table string) ([]rawColumn, error) {
	const q = `
	SELECT m.name, p.name, p.type, p."notnull", p.dflt_value, p.pk, p.hidden
	FROM sqlite_master m
	JOIN pragma_table_xinfo(m.name) p
	WHERE m.type = 'table'
	  AND m.name NOT LIKE 'sqlite_%'
	  AND (?1 = '' OR m.name = ?1)
	  AND p.hidden <> 1
	ORDER BY m.name, p.cid`

	rows, err := s.db.Query(ctx, q, table)
	if err != nil {
		return nil, fmt.Errorf("fetch columns: %w", err)
	}
	defer rows.Close()

	var raw []rawColumn
	for rows.Next() {
		var r rawColumn
		if err := rows.Scan(&r.table, &r.name, &r.typ, &r.notNull, &r.dflt, &r.pk, &r.hidden); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		raw = append(raw, r)
	}
	return raw, rows.Err()
}

// ColumnInfo returns full column metadata for table, or every table when
// table is empty.
func (s *Inspector) ColumnInfo(ctx context.Context, table string) ([]inspector.Column, error) {
	raw, err := s.fetchColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	pkParts := make(map[string]int)
	for _, r := range raw {
		if r.pk > 0 {
			pkParts[r.table]++
		}
	}

	cols := make([]inspector.Column, 0, len(raw))
	for _, r := range raw {
		c := inspector.Column{
			Table:      r.table,
			Name:       r.name,
			DataType:   normalizeType(r.typ),
			IsNullable: !r.notNull,
			// hidden 2 and 3 mark VIRTUAL and STORED generated columns.
			IsGenerated: r.hidden == 2 || r.hidden == 3,
		}
		c.MaxLength, c.NumericPrecision, c.NumericScale = typeSize(r.typ)
		if !c.IsGenerated {
			c.DefaultValue = inspector.ParseDefaultValue(r.dflt)
		}
		if r.pk > 0 && pkParts[r.table] == 1 && isRowIDAlias(r.typ) {
			c.HasAutoIncrement = true
			c.IsNullable = false
		}
		cols = append(cols, c)
	}

	keys, err := s.fetchKeyConstraints(ctx, table, raw)
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

func (s *Inspector) Column(ctx context.Context, table, column string) (inspector.Column, error) {
	cols, err := s.ColumnInfo(ctx, table)
	if err != nil {
		return inspector.Column{}, err
	}
	return inspector.FindColumn(cols, table, column)
}

func (s *Inspector) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	const q = `
	SELECT COUNT(*)
	FROM sqlite_master m
	JOIN pragma_table_xinfo(m.name) p
	WHERE m.type = 'table'
	  AND m.name NOT LIKE 'sqlite_%'
	  AND m.name = ?1
	  AND p.name = ?2
	  AND p.hidden <> 1`

	ok, err := inspector.QueryCount(ctx, s.db, q, table, column)
	if err != nil {
		return false, fmt.Errorf("column exists: %w", err)
	}
	return ok, nil
}

func (s *Inspector) PrimaryKey(ctx context.Context, table string) (string, error) {
	parts, err := s.primaryKeyParts(ctx, table)
	if err != nil {
		return "", err
	}
	return inspector.PrimaryKeyOf(parts), nil
}

func (s *Inspector) primaryKeyParts(ctx context.Context, table string) ([]string, error) {
	const q = `SELECT name FROM pragma_table_info(?1) WHERE pk > 0 ORDER BY pk`

	parts, err := inspector.QueryStrings(ctx, s.db, q, table)
	if err != nil {
		return nil, fmt.Errorf("primary key: %w", err)
	}
	return parts, nil
}

// ForeignKeys lists foreign-key column pairs. SQLite does not keep
// constraint names, so each constraint is named <table>_fk_<id>. A
// reference without target columns resolves to the referenced table's
// primary key.
func (s *Inspector) ForeignKeys(ctx context.Context, table string) ([]inspector.ForeignKey, error) {
	const q = `
	SELECT m.name, f.id, f.seq, f."table", f."from", f."to", f.on_update, f.on_delete
	FROM sqlite_master m
	JOIN pragma_foreign_key_list(m.name) f
	WHERE m.type = 'table'
	  AND m.name NOT LIKE 'sqlite_%'
	  AND (?1 = '' OR m.name = ?1)
	ORDER BY m.name, f.id, f.seq`

	rows, err := s.db.Query(ctx, q, table)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}

	type pending struct {
		fk  inspector.ForeignKey
		seq int
	}
	var list []pending
	for rows.Next() {
		var (
			fk              inspector.ForeignKey
			id, seq         int64
			to              *string
			onUpdate, onDel string
		)
		if err := rows.Scan(&fk.Table, &id, &seq, &fk.ForeignKeyTable, &fk.Column, &to, &onUpdate, &onDel); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fk.ConstraintName = fk.Table + "_fk_" + strconv.FormatInt(id, 10)
		if to != nil {
			fk.ForeignKeyColumn = *to
		}
		fk.OnUpdate = inspector.StrPtr(onUpdate)
		fk.OnDelete = inspector.StrPtr(onDel)
		list = append(list, pending{fk: fk, seq: int(seq)})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// Resolve implicit targets after the cursor is closed; SQLite pools
	// may hold a single connection.
	pks := make(map[string][]string)
	fks := make([]inspector.ForeignKey, 0, len(list))
	for _, p := range list {
		if p.fk.ForeignKeyColumn == "" {
			parts, ok := pks[p.fk.ForeignKeyTable]
			if !ok {
				if parts, err = s.primaryKeyParts(ctx, p.fk.ForeignKeyTable); err != nil {
					return nil, err
				}
				pks[p.fk.ForeignKeyTable] = parts
			}
			if p.seq < len(parts) {
				p.fk.ForeignKeyColumn = parts[p.seq]
			}
		}
		fks = append(fks, p.fk)
	}
	return fks, nil
}

// fetchKeyConstraints combines the table_info primary key with unique
// indexes. Rowid tables have no index backing their primary key, so the
// primary key always comes from raw.
func (s *Inspector) fetchKeyConstraints(ctx context.Context, table string, raw []rawColumn) ([]inspector.KeyConstraint, error) {
	pk := make(map[string][]rawColumn)
	var order []string
	for _, r := range raw {
		if r.pk == 0 {
			continue
		}
		if _, ok := pk[r.table]; !ok {
			order = append(order, r.table)
		}
		pk[r.table] = append(pk[r.table], r)
	}

	var keys []inspector.KeyConstraint
	for _, t := range order {
		parts := pk[t]
		names := make([]string, len(parts))
		for _, r := range parts {
			names[r.pk-1] = r.name
		}
		keys = append(keys, inspector.KeyConstraint{Table: t, Name: "primary", Primary: true, Columns: names})
	}

	const q = `
	SELECT m.name, il.name, ii.name
	FROM sqlite_master m
	JOIN pragma_index_list(m.name) il
	JOIN pragma_index_info(il.name) ii
	WHERE m.type = 'table'
	  AND m.name NOT LIKE 'sqlite_%'
	  AND (?1 = '' OR m.name = ?1)
	  AND il."unique" = 1
	  AND il.origin <> 'pk'
	ORDER BY m.name, il.name, ii.seqno`

	rows, err := s.db.Query(ctx, q, table)
	if err != nil {
		return nil, fmt.Errorf("fetch key constraints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tab, name string
		var col *string
		if err := rows.Scan(&tab, &name, &col); err != nil {
			return nil, fmt.Errorf("scan key constraint: %w", err)
		}
		if col == nil {
			// expression index part
			col = inspector.StrPtr("")
		}
		if n := len(keys); n > 0 && keys[n-1].Table == tab && keys[n-1].Name == name {
			keys[n-1].Columns = append(keys[n-1].Columns, *col)
			continue
		}
		keys = append(keys, inspector.KeyConstraint{Table: tab, Name: name, Columns: []string{*col}})
	}
	return keys, rows.Err()
}

var (
	sizeArgs = regexp.MustCompile(`\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\)`)
	numeric  = regexp.MustCompile(`(?i)^(decimal|numeric|number|float|double|real)`)
)

// normalizeType lower-cases the declared type. Columns declared without a
// type have BLOB affinity.
func normalizeType(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "blob"
	}
	return inspector.NormalizeDataType(raw)
}

// typeSize reads "(n)" or "(p,s)" from a declared type. SQLite does not
// enforce either; they are reported as declared.
func typeSize(raw string) (maxLength, precision, scale *int64) {
	m := sizeArgs.FindStringSubmatch(raw)
	if m == nil {
		return nil, nil, nil
	}
	first, _ := strconv.ParseInt(m[1], 10, 64)
	if numeric.MatchString(strings.TrimSpace(raw)) {
		precision = inspector.Int64Ptr(first)
		if m[2] != "" {
			s, _ := strconv.ParseInt(m[2], 10, 64)
			scale = inspector.Int64Ptr(s)
		}
		return nil, precision, scale
	}
	return inspector.Int64Ptr(first), nil, nil
}

// isRowIDAlias reports whether a single-column primary key of this declared
// type aliases the rowid, which SQLite fills automatically.
func isRowIDAlias(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), "integer")
}
