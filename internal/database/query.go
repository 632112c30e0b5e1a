package database

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/koustreak/schemascope/internal/errs"
)

// Dialect controls placeholder style, identifier quoting and paging syntax
// emitted by the query builder.
type Dialect int

const (
	// DialectPostgres uses $1, $2, … placeholders and LIMIT / OFFSET.
	DialectPostgres Dialect = iota

	// DialectMySQL uses ? placeholders and `backtick` identifiers.
	DialectMySQL

	// DialectSQLite uses ? placeholders and LIMIT / OFFSET.
	DialectSQLite

	// DialectMSSQL uses @p1, @p2, … placeholders, [bracket] identifiers
	// and OFFSET … FETCH paging.
	DialectMSSQL

	// DialectInformix uses ? placeholders and SELECT SKIP n FIRST m paging.
	DialectInformix
)

// DialectFor maps a connection driver to its query builder dialect.
func DialectFor(d Driver) Dialect {
	switch d {
	case DriverMySQL:
		return DialectMySQL
	case DriverSQLite:
		return DialectSQLite
	case DriverMSSQL:
		return DialectMSSQL
	case DriverInformix:
		return DialectInformix
	default:
		return DialectPostgres
	}
}

// validOps is the allowlist of comparison operators for WHERE clauses.
// Any operator not in this list is rejected to prevent SQL injection
// through the operator position (which cannot be parameterized).
var validOps = map[string]bool{
	"=":     true,
	"!=":    true,
	"<>":    true,
	"<":     true,
	">":     true,
	"<=":    true,
	">=":    true,
	"LIKE":  true,
	"ILIKE": true,
}

// SelectBuilder constructs a parameterized SELECT query using a fluent API.
// Values are never interpolated into the SQL string; they are always passed as args.
//
// Usage (Postgres):
//
//	sql, args, err := Select("users", DialectPostgres).
//	    Columns("id", "name", "email").
//	    Where("active", "=", true).
//	    OrderBy("created_at", Desc).
//	    Limit(20).
//	    Offset(0).
//	    Build()
type SelectBuilder struct {
	table   string
	dialect Dialect
	columns []string
	where   []whereClause
	orderBy []orderClause
	limit   *int
	offset  *int
}

// SortDirection controls the ORDER BY direction.
type SortDirection bool

const (
	Asc  SortDirection = false
	Desc SortDirection = true
)

type whereClause struct {
	column string
	op     string
	value  any
}

type orderClause struct {
	column string
	dir    SortDirection
}

// Select starts a new SelectBuilder for the given table and dialect.
func Select(table string, d Dialect) *SelectBuilder {
	return &SelectBuilder{table: table, dialect: d}
}

// Columns restricts the SELECT to the specified columns.
// If not called, SELECT * is used.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	b.columns = cols
	return b
}

// Where adds a WHERE condition. op must be one of the allowed comparison
// operators (=, !=, <, >, <=, >=, LIKE, ILIKE).
// Multiple calls are combined with AND.
func (b *SelectBuilder) Where(column, op string, value any) *SelectBuilder {
	b.where = append(b.where, whereClause{column, op, value})
	return b
}

// OrderBy appends an ORDER BY clause for the given column and direction.
func (b *SelectBuilder) OrderBy(column string, dir SortDirection) *SelectBuilder {
	b.orderBy = append(b.orderBy, orderClause{column, dir})
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// Offset sets the number of rows to skip (for pagination).
func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offset = &n
	return b
}

// Build produces the final SQL string and argument slice.
// Returns an error if any WHERE operator is not in the allowlist or a
// paging value is negative.
func (b *SelectBuilder) Build() (string, []any, error) {
	if (b.limit != nil && *b.limit < 0) || (b.offset != nil && *b.offset < 0) {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "limit and offset must not be negative")
	}

	// --- column list ---
	cols := "*"
	if len(b.columns) > 0 {
		quoted := make([]string, len(b.columns))
		for i, c := range b.columns {
			quoted[i] = QuoteIdent(b.dialect, c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")

	// Informix pages in the projection: SELECT SKIP n FIRST m …
	// Both values are validated integers, so they are written inline.
	if b.dialect == DialectInformix {
		if b.offset != nil {
			sb.WriteString("SKIP " + strconv.Itoa(*b.offset) + " ")
		}
		if b.limit != nil {
			sb.WriteString("FIRST " + strconv.Itoa(*b.limit) + " ")
		}
	}

	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(QuoteIdent(b.dialect, b.table))

	var args []any
	argIdx := 1

	// --- WHERE ---
	if len(b.where) > 0 {
		parts := make([]string, 0, len(b.where))
		for _, w := range b.where {
			op := strings.ToUpper(w.op)
			if !validOps[op] {
				return "", nil, errs.Newf(errs.ErrKindInvalidInput,
					"unsupported WHERE operator: %q", w.op)
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", QuoteIdent(b.dialect, w.column), op, b.placeholder(argIdx)))
			args = append(args, w.value)
			argIdx++
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(parts, " AND "))
	}

	// --- ORDER BY ---
	if len(b.orderBy) > 0 {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			dir := "ASC"
			if o.dir == Desc {
				dir = "DESC"
			}
			parts[i] = fmt.Sprintf("%s %s", QuoteIdent(b.dialect, o.column), dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	switch b.dialect {
	case DialectInformix:
		// already emitted in the projection

	case DialectMSSQL:
		if b.limit == nil && b.offset == nil {
			break
		}
		// OFFSET … FETCH is only legal after an ORDER BY.
		if len(b.orderBy) == 0 {
			sb.WriteString(" ORDER BY (SELECT NULL)")
		}
		offset := 0
		if b.offset != nil {
			offset = *b.offset
		}
		sb.WriteString(fmt.Sprintf(" OFFSET %s ROWS", b.placeholder(argIdx)))
		args = append(args, offset)
		argIdx++
		if b.limit != nil {
			sb.WriteString(fmt.Sprintf(" FETCH NEXT %s ROWS ONLY", b.placeholder(argIdx)))
			args = append(args, *b.limit)
		}

	default:
		// --- LIMIT ---
		switch {
		case b.limit != nil:
			sb.WriteString(fmt.Sprintf(" LIMIT %s", b.placeholder(argIdx)))
			args = append(args, *b.limit)
			argIdx++
		case b.offset != nil && b.dialect == DialectSQLite:
			// SQLite and MySQL reject OFFSET without LIMIT.
			sb.WriteString(" LIMIT -1")
		case b.offset != nil && b.dialect == DialectMySQL:
			sb.WriteString(" LIMIT 18446744073709551615")
		}

		// --- OFFSET ---
		if b.offset != nil {
			sb.WriteString(fmt.Sprintf(" OFFSET %s", b.placeholder(argIdx)))
			args = append(args, *b.offset)
		}
	}

	return sb.String(), args, nil
}

// placeholder returns the correct parameter placeholder for the dialect.
// Postgres: $1, $2, …   SQL Server: @p1, @p2, …   others: ? (index is ignored)
func (b *SelectBuilder) placeholder(idx int) string {
	switch b.dialect {
	case DialectPostgres:
		return fmt.Sprintf("$%d", idx)
	case DialectMSSQL:
		return fmt.Sprintf("@p%d", idx)
	default:
		return "?"
	}
}

// QuoteIdent quotes a SQL identifier for the dialect, escaping the quote
// character by doubling it. Postgres, SQLite and Informix (with DELIMIDENT)
// use ANSI double quotes, MySQL backticks and SQL Server brackets.
func QuoteIdent(d Dialect, name string) string {
	switch d {
	case DialectMySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case DialectMSSQL:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}
