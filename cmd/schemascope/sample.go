package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/errs"
)

type sampleOptions struct {
	limit   int
	offset  int
	columns []string
	orderBy string
	desc    bool
	where   []string
}

func newSampleCmd(a *app) *cobra.Command {
	o := &sampleOptions{}
	cmd := &cobra.Command{
		Use:   "sample <table>",
		Short: "Preview rows of a table",
		Long: `Reads a page of rows from a table. Column and filter names are checked
against the catalog before the query is built.

  schemascope sample orders --columns id,total --where status=paid --order-by id --desc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, s *session) (any, error) {
				return sample(ctx, s, args[0], o)
			})
		},
	}

	f := cmd.Flags()
	f.IntVar(&o.limit, "limit", 20, "maximum rows to return")
	f.IntVar(&o.offset, "offset", 0, "rows to skip")
	f.StringSliceVar(&o.columns, "columns", nil, "columns to select (default: all)")
	f.StringVar(&o.orderBy, "order-by", "", "column to sort by")
	f.BoolVar(&o.desc, "desc", false, "sort descending")
	f.StringArrayVar(&o.where, "where", nil, "filter as column<op>value, op one of = != < <= > >= (repeatable)")
	return cmd
}

func sample(ctx context.Context, s *session, table string, o *sampleOptions) ([]map[string]any, error) {
	ok, err := s.ins.TableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found", table)
	}

	b := database.Select(table, database.DialectFor(s.db.Driver())).Limit(o.limit)
	if o.offset > 0 {
		b.Offset(o.offset)
	}

	if len(o.columns) > 0 {
		for _, c := range o.columns {
			if err := requireColumn(ctx, s, table, c); err != nil {
				return nil, err
			}
		}
		b.Columns(o.columns...)
	}

	for _, raw := range o.where {
		col, op, val, err := parseFilter(raw)
		if err != nil {
			return nil, err
		}
		if err := requireColumn(ctx, s, table, col); err != nil {
			return nil, err
		}
		b.Where(col, op, val)
	}

	if o.orderBy != "" {
		if err := requireColumn(ctx, s, table, o.orderBy); err != nil {
			return nil, err
		}
		dir := database.Asc
		if o.desc {
			dir = database.Desc
		}
		b.OrderBy(o.orderBy, dir)
	}

	query, qargs, err := b.Build()
	if err != nil {
		return nil, err
	}
	s.log.With().Str("sql", query).Logger().Debug("sample query")

	rows, err := s.db.Query(ctx, query, qargs...)
	if err != nil {
		return nil, err
	}
	return database.ScanRows(rows)
}

// filterOps is ordered so two-character operators win over their prefixes.
var filterOps = []string{"!=", "<=", ">=", "=", "<", ">"}

// parseFilter splits "column<op>value" at the first operator.
func parseFilter(raw string) (column, op, value string, err error) {
	at := -1
	for _, candidate := range filterOps {
		i := strings.Index(raw, candidate)
		if i > 0 && (at < 0 || i < at) {
			at, op = i, candidate
		}
	}
	if at < 0 {
		return "", "", "", errs.Newf(errs.ErrKindInvalidInput, "invalid filter %q: expected column<op>value", raw)
	}
	return strings.TrimSpace(raw[:at]), op, strings.TrimSpace(raw[at+len(op):]), nil
}
