package inspector

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/koustreak/schemascope/internal/errs"
)

// ParseDefaultValue normalizes a raw catalog default expression.
//
// nil and the literal NULL (any case) become nil. A value wrapped in one
// layer of matching single or double quotes is unwrapped. Anything else,
// such as CURRENT_TIMESTAMP or nextval('seq'), is returned verbatim.
func ParseDefaultValue(raw *string) *string {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*raw)
	if strings.EqualFold(trimmed, "null") {
		return nil
	}
	if len(trimmed) >= 2 {
		first, last := trimmed[0], trimmed[len(trimmed)-1]
		if (first == '\'' || first == '"') && first == last {
			return StrPtr(trimmed[1 : len(trimmed)-1])
		}
	}
	v := *raw
	return &v
}

var sizeSuffix = regexp.MustCompile(`\(.*?\)`)

// NormalizeDataType strips the first parenthesized size suffix from a raw
// catalog type and lower-cases it. A one-wide tinyint is the MySQL boolean
// encoding and becomes "boolean".
func NormalizeDataType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(t, "tinyint(1)") {
		return "boolean"
	}
	if loc := sizeSuffix.FindStringIndex(t); loc != nil {
		t = t[:loc[0]] + t[loc[1]:]
	}
	return strings.Join(strings.Fields(t), " ")
}

// DedupeColumns keeps exactly one entry per (table, name). When a catalog
// join yields several rows for the same column, the row carrying foreign-key
// information wins; otherwise the first row wins. Surviving rows keep their
// original relative order.
func DedupeColumns(cols []Column) []Column {
	sorted := slices.Clone(cols)
	slices.SortStableFunc(sorted, func(a, b Column) int {
		return cmp.Compare(fkRank(a), fkRank(b))
	})

	type key struct{ table, name string }
	winner := make(map[key]int, len(sorted))
	for i, c := range sorted {
		k := key{c.Table, c.Name}
		if _, ok := winner[k]; !ok {
			winner[k] = i
		}
	}

	// Emit in the caller's order so declaration order survives.
	out := make([]Column, 0, len(winner))
	emitted := make(map[key]bool, len(winner))
	for _, c := range cols {
		k := key{c.Table, c.Name}
		if emitted[k] {
			continue
		}
		emitted[k] = true
		out = append(out, sorted[winner[k]])
	}
	return out
}

func fkRank(c Column) int {
	if c.ForeignKeyTable != nil {
		return 0
	}
	return 1
}

// AttachForeignKeys copies the referenced table and column of single-column
// references onto the matching columns. Columns that take part in more than
// one constraint keep the first one.
func AttachForeignKeys(cols []Column, fks []ForeignKey) {
	type key struct{ table, name string }
	refs := make(map[key]ForeignKey, len(fks))
	for _, fk := range fks {
		k := key{fk.Table, fk.Column}
		if _, ok := refs[k]; !ok {
			refs[k] = fk
		}
	}
	for i := range cols {
		if fk, ok := refs[key{cols[i].Table, cols[i].Name}]; ok && cols[i].ForeignKeyTable == nil {
			cols[i].ForeignKeyTable = StrPtr(fk.ForeignKeyTable)
			cols[i].ForeignKeyColumn = StrPtr(fk.ForeignKeyColumn)
		}
	}
}

// KeyConstraint is a primary-key or unique constraint with its columns in
// key order.
type KeyConstraint struct {
	Table   string
	Name    string
	Primary bool
	Columns []string
}

// ApplyKeyConstraints sets IsPrimaryKey on every primary-key part and
// IsUnique on columns covered by a single-column unique constraint. A
// composite unique constraint makes no individual column unique.
func ApplyKeyConstraints(cols []Column, keys []KeyConstraint) {
	type key struct{ table, name string }
	primary := make(map[key]bool)
	unique := make(map[key]bool)
	for _, kc := range keys {
		for _, col := range kc.Columns {
			k := key{kc.Table, col}
			if kc.Primary {
				primary[k] = true
			} else if len(kc.Columns) == 1 {
				unique[k] = true
			}
		}
	}
	for i := range cols {
		k := key{cols[i].Table, cols[i].Name}
		if primary[k] {
			cols[i].IsPrimaryKey = true
		}
		if unique[k] {
			cols[i].IsUnique = true
		}
	}
}

// PrimaryKeyOf returns the only column of keys, or "" when keys is empty or
// composite.
func PrimaryKeyOf(keys []string) string {
	if len(keys) != 1 {
		return ""
	}
	return keys[0]
}

// UnsupportedTypeError names a column whose vendor type could not be mapped
// to a normalized type.
type UnsupportedTypeError struct {
	Table   string
	Column  string
	RawType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported data type %s for column %s.%s", e.RawType, e.Table, e.Column)
}

// NewUnsupportedType wraps an UnsupportedTypeError in an
// errs.ErrKindUnsupportedType error. errors.As recovers the details.
func NewUnsupportedType(table, column, rawType string) *errs.Error {
	detail := &UnsupportedTypeError{Table: table, Column: column, RawType: rawType}
	return errs.Wrap(errs.ErrKindUnsupportedType, "cannot normalize column type", detail)
}
