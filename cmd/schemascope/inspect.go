package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/inspector"
)

func newDriversCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "drivers",
		Short: "List the database drivers with an inspector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return render(cmd.OutOrStdout(), output, inspector.Drivers())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format (json, yaml)")
	return cmd
}

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List user tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, s *session) (any, error) {
				return s.ins.Tables(ctx)
			})
		},
	}
}

func newColumnsCmd(a *app) *cobra.Command {
	var namesOnly bool
	cmd := &cobra.Command{
		Use:   "columns [table]",
		Short: "Show column metadata for one table or every table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := optionalArg(args)
			return a.run(cmd, func(ctx context.Context, s *session) (any, error) {
				if namesOnly {
					return s.ins.Columns(ctx, table)
				}
				return s.ins.ColumnInfo(ctx, table)
			})
		},
	}
	cmd.Flags().BoolVar(&namesOnly, "names", false, "list (table, column) pairs only")
	return cmd
}

func newColumnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "column <table> <column>",
		Short: "Show metadata for a single column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, s *session) (any, error) {
				return s.ins.Column(ctx, args[0], args[1])
			})
		},
	}
}

func newExistsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <table> [column]",
		Short: "Report whether a table, or a column of it, exists",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, s *session) (any, error) {
				if len(args) == 2 {
					return s.ins.ColumnExists(ctx, args[0], args[1])
				}
				return s.ins.TableExists(ctx, args[0])
			})
		},
	}
}

func newPrimaryKeyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "primary-key <table>",
		Short: "Show the single-column primary key of a table",
		Long: `Prints the primary-key column name. The result is empty when the
table has no primary key or the key spans several columns.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, s *session) (any, error) {
				return s.ins.PrimaryKey(ctx, args[0])
			})
		},
	}
}

func newForeignKeysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "foreign-keys [table]",
		Short: "List foreign keys, one entry per column pair",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, s *session) (any, error) {
				return s.ins.ForeignKeys(ctx, optionalArg(args))
			})
		},
	}
}

func newOverviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show every table keyed by name with its primary key and columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, s *session) (any, error) {
				return inspector.BuildSchemaOverview(ctx, s.ins)
			})
		},
	}
}

func newDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Capture tables, overview and foreign keys in one document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, s *session) (any, error) {
				return s.describe(ctx)
			})
		},
	}
}

func newProvisionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Install the helper routines a dialect needs (Informix)",
		Long: `Drops and recreates the helper routines the inspector relies on.
Dialects without helper routines report that nothing was done.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, s *session) (any, error) {
				p, ok := s.ins.(inspector.Provisioner)
				if !ok {
					return map[string]any{"driver": s.db.Driver(), "provisioned": false}, nil
				}
				if err := p.Provision(ctx); err != nil {
					return nil, err
				}
				s.log.Info("helper routines provisioned")
				return map[string]any{"driver": s.db.Driver(), "provisioned": true}, nil
			})
		},
	}
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func requireColumn(ctx context.Context, s *session, table, column string) error {
	ok, err := s.ins.ColumnExists(ctx, table, column)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.ErrKindInvalidInput, "unknown column "+table+"."+column)
	}
	return nil
}
