package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/koustreak/schemascope/internal/config"
	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/filestore/minio"
	"github.com/koustreak/schemascope/internal/inspector"
	"github.com/koustreak/schemascope/internal/logger"
	"github.com/koustreak/schemascope/internal/snapshot"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save, list and compare schema snapshots in object storage",
	}
	cmd.AddCommand(
		newSnapshotSaveCmd(a),
		newSnapshotListCmd(a),
		newSnapshotDiffCmd(a),
		newSnapshotURLCmd(a),
	)
	return cmd
}

// openRepository connects to the configured object store.
func openRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (*snapshot.Repository, func(), error) {
	if !cfg.SnapshotsEnabled() {
		return nil, nil, errs.New(errs.ErrKindInvalidInput, "snapshot.endpoint is not configured")
	}
	store, err := minio.New(ctx, cfg.FilestoreConfig())
	if err != nil {
		return nil, nil, err
	}
	repo := snapshot.New(store, cfg.Snapshot.Bucket, cfg.Snapshot.Prefix, log)
	return repo, func() { _ = store.Close() }, nil
}

// withRepository runs fn against the object store only, without a database
// connection.
func (a *app) withRepository(cmd *cobra.Command, fn func(ctx context.Context, repo *snapshot.Repository) (any, error)) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	repo, closeStore, err := openRepository(cmd.Context(), cfg, logger.New(cfg.LoggerConfig()))
	if err != nil {
		return err
	}
	defer closeStore()

	v, err := fn(cmd.Context(), repo)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), a.output, v)
}

func newSnapshotSaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save <name>",
		Short: "Capture the live schema and store it under name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, s *session) (any, error) {
				repo, closeStore, err := openRepository(ctx, s.cfg, s.log)
				if err != nil {
					return nil, err
				}
				defer closeStore()

				d, err := s.describe(ctx)
				if err != nil {
					return nil, err
				}
				key, err := repo.Save(ctx, args[0], d)
				if err != nil {
					return nil, err
				}
				return map[string]any{"key": key, "tables": len(d.Tables)}, nil
			})
		},
	}
}

func newSnapshotListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <name>",
		Short: "List stored snapshots for name, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRepository(cmd, func(ctx context.Context, repo *snapshot.Repository) (any, error) {
				return repo.List(ctx, args[0])
			})
		},
	}
}

func newSnapshotURLCmd(a *app) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "url <key>",
		Short: "Print a presigned download URL for a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRepository(cmd, func(ctx context.Context, repo *snapshot.Repository) (any, error) {
				return repo.URL(ctx, args[0], ttl)
			})
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 15*time.Minute, "how long the URL stays valid")
	return cmd
}

func newSnapshotDiffCmd(a *app) *cobra.Command {
	var (
		against      string
		failOnChange bool
	)
	cmd := &cobra.Command{
		Use:   "diff <name>",
		Short: "Compare the live schema with a stored snapshot",
		Long: `Compares the live schema with the latest snapshot for name, or with the
snapshot at --against. With --fail-on-change the command exits non-zero
when anything differs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var changes []inspector.Change
			err := a.run(cmd, func(ctx context.Context, s *session) (any, error) {
				repo, closeStore, err := openRepository(ctx, s.cfg, s.log)
				if err != nil {
					return nil, err
				}
				defer closeStore()

				key := against
				if key == "" {
					if key, err = repo.Latest(ctx, args[0]); err != nil {
						return nil, err
					}
				}
				prev, err := repo.Load(ctx, key)
				if err != nil {
					return nil, err
				}
				live, err := inspector.BuildSchemaOverview(ctx, s.ins)
				if err != nil {
					return nil, err
				}

				changes = inspector.Diff(prev.Overview, live)
				s.log.With().Str("snapshot", key).Int("changes", len(changes)).Logger().Info("schema compared")
				if changes == nil {
					return []inspector.Change{}, nil
				}
				return changes, nil
			})
			if err != nil {
				return err
			}
			if failOnChange && len(changes) > 0 {
				return fmt.Errorf("schema changed: %d difference(s)", len(changes))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&against, "against", "", "snapshot key to compare with (default: latest for name)")
	cmd.Flags().BoolVar(&failOnChange, "fail-on-change", false, "exit non-zero when the schema differs")
	return cmd
}
