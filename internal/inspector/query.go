package inspector

import (
	"context"
	"strings"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/errs"
)

// QueryStrings runs q and collects its single text column.
func QueryStrings(ctx context.Context, db database.DB, q string, args ...any) ([]string, error) {
	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		list = append(list, strings.TrimSpace(s))
	}
	return list, rows.Err()
}

// QueryCount runs a COUNT(*) query and reports whether the count is positive.
func QueryCount(ctx context.Context, db database.DB, q string, args ...any) (bool, error) {
	row, err := db.QueryRow(ctx, q, args...)
	if err != nil {
		return false, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindColumn picks column out of cols or returns an ErrKindNotFound error.
func FindColumn(cols []Column, table, column string) (Column, error) {
	for _, c := range cols {
		if c.Table == table && c.Name == column {
			return c, nil
		}
	}
	return Column{}, errs.Newf(errs.ErrKindNotFound, "column %s.%s not found", table, column)
}
