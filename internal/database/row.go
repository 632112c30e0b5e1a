package database

import "github.com/koustreak/schemascope/internal/errs"

// ScanRows drains rows into one map per row keyed by column name and closes
// rows. Values keep the driver's Go type except []byte, which becomes a
// string so previews encode as text in JSON and YAML. Zero rows yield an
// empty, non-nil slice.
func ScanRows(rows Rows) ([]map[string]any, error) {
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, classify(err, "failed to read column names")
	}

	values := make([]any, len(names))
	targets := make([]any, len(names))
	for i := range values {
		targets[i] = &values[i]
	}

	out := []map[string]any{}
	for rows.Next() {
		clear(values)
		if err := rows.Scan(targets...); err != nil {
			return nil, classify(err, "failed to scan row")
		}

		row := make(map[string]any, len(names))
		for i, name := range names {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = values[i]
			}
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err, "error during row iteration")
	}
	return out, nil
}

// classify keeps a kind the driver already assigned, such as a timeout.
func classify(err error, msg string) error {
	if errs.KindOf(err) != errs.ErrKindUnknown {
		return err
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}
