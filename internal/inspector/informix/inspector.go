// Package informix inspects IBM Informix databases through the system
// catalogs (systables, syscolumns, sysdefaults, sysconstraints, sysindexes,
// sysxtdtypes) and a provisioned SPL routine for foreign keys.
package informix

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/inspector"
	"github.com/koustreak/schemascope/internal/logger"
)

func init() {
	inspector.Register(database.DriverInformix, func(db database.DB, opts inspector.Options) (inspector.Inspector, error) {
		return New(db, opts), nil
	})
}

// Inspector implements inspector.Inspector and inspector.Provisioner for
// Informix. The only state it keeps is whether the helper routine is known
// to exist.
type Inspector struct {
	db    database.DB
	owner string
	log   *logger.Logger

	provisioned atomic.Bool
	group       singleflight.Group
}

// New returns an Informix inspector. opts.Schema, when set, restricts
// introspection to tables owned by that user.
func New(db database.DB, opts inspector.Options) *Inspector {
	return &Inspector{
		db:    db,
		owner: opts.Schema,
		log:   opts.Log().With().Str("inspector", "informix").Logger(),
	}
}

// userTables excludes catalog tables (tabid < 100), views and the sys/vw
// name prefixes used for internal objects.
const userTables = `t.tabid >= 100
	AND t.tabtype = 'T'
	AND t.tabname NOT LIKE 'sys%'
	AND t.tabname NOT LIKE 'vw%'`

// scope appends the owner and optional table filters to a WHERE clause.
func (i *Inspector) scope(table string) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(userTables)
	if i.owner != "" {
		sb.WriteString("\n\tAND t.owner = ?")
		args = append(args, i.owner)
	}
	if table != "" {
		sb.WriteString("\n\tAND t.tabname = ?")
		args = append(args, table)
	}
	return sb.String(), args
}

// Tables lists user tables ordered by name.
func (i *Inspector) Tables(ctx context.Context) ([]inspector.Table, error) {
	where, args := i.scope("")
	q := `SELECT TRIM(t.tabname), TRIM(t.owner)
	FROM systables t
	WHERE ` + where + `
	ORDER BY 1`

	rows, err := i.db.Query(ctx, q, args...)
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

// TableExists reports whether table is a user table.
func (i *Inspector) TableExists(ctx context.Context, table string) (bool, error) {
	if table == "" {
		return false, nil
	}
	where, args := i.scope(table)
	ok, err := inspector.QueryCount(ctx, i.db, `SELECT COUNT(*) FROM systables t WHERE `+where, args...)
	if err != nil {
		return false, fmt.Errorf("table exists: %w", err)
	}
	return ok, nil
}

// Columns enumerates (table, column) pairs in colno order.
func (i *Inspector) Columns(ctx context.Context, table string) ([]inspector.ColumnRef, error) {
	where, args := i.scope(table)
	q := `SELECT TRIM(t.tabname), TRIM(c.colname)
	FROM systables t, syscolumns c
	WHERE c.tabid = t.tabid
	AND ` + where + `
	ORDER BY t.tabname, c.colno`

	rows, err := i.db.Query(ctx, q, args...)
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

// ColumnInfo returns full metadata for the columns of table, or of every
// table when table is empty.
func (i *Inspector) ColumnInfo(ctx context.Context, table string) ([]inspector.Column, error) {
	if err := i.ensureProvisioned(ctx); err != nil {
		return nil, err
	}

	cols, err := i.fetchColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	keys, err := i.fetchKeyConstraints(ctx, table)
	if err != nil {
		return nil, err
	}
	inspector.ApplyKeyConstraints(cols, keys)

	fks, err := i.fetchForeignKeys(ctx, table)
	if err != nil {
		return nil, err
	}
	inspector.AttachForeignKeys(cols, fks)

	return inspector.DedupeColumns(cols), nil
}

// Column returns a single column of table.
func (i *Inspector) Column(ctx context.Context, table, column string) (inspector.Column, error) {
	cols, err := i.ColumnInfo(ctx, table)
	if err != nil {
		return inspector.Column{}, err
	}
	return inspector.FindColumn(cols, table, column)
}

// ColumnExists reports whether table has column.
func (i *Inspector) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	where, args := i.scope(table)
	q := `SELECT COUNT(*)
	FROM systables t, syscolumns c
	WHERE c.tabid = t.tabid
	AND c.colname = ?
	AND ` + where

	ok, err := inspector.QueryCount(ctx, i.db, q, append([]any{column}, args...)...)
	if err != nil {
		return false, fmt.Errorf("column exists: %w", err)
	}
	return ok, nil
}

// PrimaryKey returns the single primary-key column of table, or "" when the
// key is missing or composite.
func (i *Inspector) PrimaryKey(ctx context.Context, table string) (string, error) {
	keys, err := i.fetchKeyConstraints(ctx, table)
	if err != nil {
		return "", err
	}
	for _, k := range keys {
		if k.Primary && k.Table == table {
			return inspector.PrimaryKeyOf(k.Columns), nil
		}
	}
	return "", nil
}

// ForeignKeys lists foreign-key parts, provisioning the helper routine first
// if needed.
func (i *Inspector) ForeignKeys(ctx context.Context, table string) ([]inspector.ForeignKey, error) {
	if err := i.ensureProvisioned(ctx); err != nil {
		return nil, err
	}
	return i.fetchForeignKeys(ctx, table)
}

// --- catalog queries ---

func (i *Inspector) fetchColumns(ctx context.Context, table string) ([]inspector.Column, error) {
	where, args := i.scope(table)
	q := `SELECT TRIM(t.tabname), TRIM(c.colname), c.coltype, c.collength,
	       x.name, d.type, d.default
	FROM systables t
	JOIN syscolumns c ON c.tabid = t.tabid
	LEFT OUTER JOIN sysxtdtypes x ON x.extended_id = c.extended_id AND c.extended_id > 0
	LEFT OUTER JOIN sysdefaults d ON d.tabid = c.tabid AND d.colno = c.colno
	WHERE ` + where + `
	ORDER BY t.tabname, c.colno`

	rows, err := i.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch columns: %w", err)
	}
	defer rows.Close()

	var cols []inspector.Column
	for rows.Next() {
		var (
			c                   inspector.Column
			coltype, collength  int64
			extName             *string
			defKind, defLiteral *string
		)
		if err := rows.Scan(&c.Table, &c.Name, &coltype, &collength, &extName, &defKind, &defLiteral); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}

		ext := ""
		if extName != nil {
			ext = *extName
		}
		ct, ok := decodeColType(coltype, collength, ext)
		if !ok {
			return nil, inspector.NewUnsupportedType(c.Table, c.Name, rawTypeName(coltype, collength, ext))
		}

		c.DataType = ct.dataType
		c.IsNullable = ct.nullable
		c.HasAutoIncrement = ct.autoIncrement
		c.MaxLength = ct.maxLength
		c.NumericPrecision = ct.precision
		c.NumericScale = ct.scale
		c.DefaultValue = inspector.ParseDefaultValue(decodeDefault(defKind, defLiteral, ct.character))
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// keyPosition maps c.colno to its 1-based position among i.part1 …
// i.part16; descending key parts are stored as negative column numbers.
var keyPosition = func() string {
	var sb strings.Builder
	sb.WriteString("CASE c.colno")
	for n := 1; n <= 16; n++ {
		fmt.Fprintf(&sb, " WHEN ABS(i.part%d) THEN %d", n, n)
	}
	sb.WriteString(" END")
	return sb.String()
}()

// fetchKeyConstraints reads primary-key and unique constraints together with
// unique indexes that back no constraint, columns in key-part order.
func (i *Inspector) fetchKeyConstraints(ctx context.Context, table string) ([]inspector.KeyConstraint, error) {
	where, args := i.scope(table)
	q := `SELECT TRIM(t.tabname), TRIM(NVL(k.constrname, i.idxname)), NVL(k.constrtype, 'U'),
	       TRIM(c.colname), ` + keyPosition + ` AS keypos
	FROM systables t
	JOIN sysindexes i ON i.tabid = t.tabid
	JOIN syscolumns c ON c.tabid = t.tabid
	LEFT OUTER JOIN sysconstraints k ON k.tabid = i.tabid AND k.idxname = i.idxname
	     AND k.constrtype IN ('P', 'U')
	WHERE (i.idxtype = 'U' OR k.constrtype IS NOT NULL)
	AND ` + keyPosition + ` IS NOT NULL
	AND ` + where + `
	ORDER BY 1, 2, 5`

	rows, err := i.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch key constraints: %w", err)
	}
	defer rows.Close()

	var (
		keys  []inspector.KeyConstraint
		index = make(map[[2]string]int)
	)
	for rows.Next() {
		var (
			tab, name, kind, col string
			pos                  int64
		)
		if err := rows.Scan(&tab, &name, &kind, &col, &pos); err != nil {
			return nil, fmt.Errorf("scan key constraint: %w", err)
		}
		k := [2]string{tab, name}
		n, ok := index[k]
		if !ok {
			n = len(keys)
			index[k] = n
			keys = append(keys, inspector.KeyConstraint{
				Table:   tab,
				Name:    name,
				Primary: strings.TrimSpace(kind) == "P",
			})
		}
		keys[n].Columns = append(keys[n].Columns, col)
	}
	return keys, rows.Err()
}

const fkPartsQuery = `SELECT fk.tabname, fk.colname, fk.reftabname, fk.refcolname,
	       fk.constrname, fk.keypos, fk.updrule, fk.delrule
	FROM TABLE (FUNCTION ` + routineName + `())
	     AS fk(tabname, colname, reftabname, refcolname, constrname, keypos, updrule, delrule)`

func (i *Inspector) fetchForeignKeys(ctx context.Context, table string) ([]inspector.ForeignKey, error) {
	q := fkPartsQuery
	var args []any
	if table != "" {
		q += "\n\tWHERE fk.tabname = ?"
		args = append(args, table)
	}
	q += "\n\tORDER BY 1, 5, 6"

	rows, err := i.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []inspector.ForeignKey
	for rows.Next() {
		var (
			fk               inspector.ForeignKey
			keyPos           int64
			updRule, delRule *string
		)
		if err := rows.Scan(&fk.Table, &fk.Column, &fk.ForeignKeyTable, &fk.ForeignKeyColumn,
			&fk.ConstraintName, &keyPos, &updRule, &delRule); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fk.OnUpdate = referentialAction(updRule)
		fk.OnDelete = referentialAction(delRule)
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// referentialAction maps sysreferences update/delete rule codes.
func referentialAction(code *string) *string {
	if code == nil {
		return nil
	}
	switch strings.TrimSpace(*code) {
	case "C":
		return inspector.StrPtr("CASCADE")
	case "N":
		return inspector.StrPtr("SET NULL")
	case "D":
		return inspector.StrPtr("SET DEFAULT")
	case "R":
		return inspector.StrPtr("RESTRICT")
	}
	return nil
}
