package inspector

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// ChangeKind classifies one difference between two overviews.
type ChangeKind string

const (
	TableAdded     ChangeKind = "table_added"
	TableRemoved   ChangeKind = "table_removed"
	ColumnAdded    ChangeKind = "column_added"
	ColumnRemoved  ChangeKind = "column_removed"
	ColumnChanged  ChangeKind = "column_changed"
	PrimaryChanged ChangeKind = "primary_changed"
)

// Change is one schema difference. Field, Old and New are set for
// ColumnChanged and PrimaryChanged.
type Change struct {
	Kind   ChangeKind `json:"kind" yaml:"kind"`
	Table  string     `json:"table" yaml:"table"`
	Column string     `json:"column,omitempty" yaml:"column,omitempty"`
	Field  string     `json:"field,omitempty" yaml:"field,omitempty"`
	Old    string     `json:"old,omitempty" yaml:"old,omitempty"`
	New    string     `json:"new,omitempty" yaml:"new,omitempty"`
}

func (c Change) String() string {
	switch c.Kind {
	case TableAdded, TableRemoved:
		return fmt.Sprintf("%s %s", c.Kind, c.Table)
	case ColumnAdded, ColumnRemoved:
		return fmt.Sprintf("%s %s.%s", c.Kind, c.Table, c.Column)
	case PrimaryChanged:
		return fmt.Sprintf("%s %s: %q -> %q", c.Kind, c.Table, c.Old, c.New)
	default:
		return fmt.Sprintf("%s %s.%s %s: %q -> %q", c.Kind, c.Table, c.Column, c.Field, c.Old, c.New)
	}
}

// Diff lists the changes that turn prev into next, ordered by table and
// then column name.
func Diff(prev, next Overview) []Change {
	var changes []Change

	tables := slices.Sorted(maps.Keys(unionKeys(prev, next)))
	for _, table := range tables {
		o, inOld := prev[table]
		n, inNew := next[table]
		switch {
		case !inOld:
			changes = append(changes, Change{Kind: TableAdded, Table: table})
			continue
		case !inNew:
			changes = append(changes, Change{Kind: TableRemoved, Table: table})
			continue
		}

		if o.Primary != n.Primary {
			changes = append(changes, Change{Kind: PrimaryChanged, Table: table, Field: "primary", Old: o.Primary, New: n.Primary})
		}

		for _, col := range slices.Sorted(maps.Keys(unionKeys(o.Columns, n.Columns))) {
			oc, inOld := o.Columns[col]
			nc, inNew := n.Columns[col]
			switch {
			case !inOld:
				changes = append(changes, Change{Kind: ColumnAdded, Table: table, Column: col})
			case !inNew:
				changes = append(changes, Change{Kind: ColumnRemoved, Table: table, Column: col})
			default:
				changes = append(changes, columnChanges(table, col, oc, nc)...)
			}
		}
	}
	return changes
}

func columnChanges(table, col string, o, n Column) []Change {
	fields := []struct {
		name     string
		old, new string
	}{
		{"data_type", o.DataType, n.DataType},
		{"is_nullable", strconv.FormatBool(o.IsNullable), strconv.FormatBool(n.IsNullable)},
		{"default_value", deref(o.DefaultValue), deref(n.DefaultValue)},
		{"max_length", derefInt(o.MaxLength), derefInt(n.MaxLength)},
		{"is_unique", strconv.FormatBool(o.IsUnique), strconv.FormatBool(n.IsUnique)},
		{"foreign_key", ref(o), ref(n)},
	}

	var out []Change
	for _, f := range fields {
		if f.old != f.new {
			out = append(out, Change{Kind: ColumnChanged, Table: table, Column: col, Field: f.name, Old: f.old, New: f.new})
		}
	}
	return out
}

func unionKeys[M ~map[string]V, V any](a, b M) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

func ref(c Column) string {
	if c.ForeignKeyTable == nil {
		return ""
	}
	return *c.ForeignKeyTable + "." + deref(c.ForeignKeyColumn)
}
