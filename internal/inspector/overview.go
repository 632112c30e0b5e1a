package inspector

import "context"

// AutoIncrementDefault replaces the default of auto-increment columns in an
// Overview, hiding engine-specific sequence expressions.
const AutoIncrementDefault = "AUTO_INCREMENT"

// BuildOverview groups columns by table. A table's Primary is set only when
// exactly one of its columns is flagged primary; zero or several leave it
// empty.
func BuildOverview(cols []Column) Overview {
	primaries := make(map[string][]string)
	for _, c := range cols {
		if c.IsPrimaryKey {
			primaries[c.Table] = append(primaries[c.Table], c.Name)
		}
	}

	out := make(Overview)
	for _, c := range cols {
		t, ok := out[c.Table]
		if !ok {
			t = TableOverview{
				Primary: PrimaryKeyOf(primaries[c.Table]),
				Columns: make(map[string]Column),
			}
			out[c.Table] = t
		}
		if c.HasAutoIncrement {
			c.DefaultValue = StrPtr(AutoIncrementDefault)
		}
		t.Columns[c.Name] = c
	}
	return out
}

// BuildSchemaOverview reads every column through ins and folds them into an
// Overview.
func BuildSchemaOverview(ctx context.Context, ins Inspector) (Overview, error) {
	cols, err := ins.ColumnInfo(ctx, "")
	if err != nil {
		return nil, err
	}
	return BuildOverview(cols), nil
}
