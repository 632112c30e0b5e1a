package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/schemascope/internal/config"
	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/database/connect"
	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/inspector"
	"github.com/koustreak/schemascope/internal/logger"
)

// app holds the persistent flags shared by every subcommand.
type app struct {
	cfgFile  string
	logLevel string
	driver   string
	dsn      string
	schema   string
	output   string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "schemascope",
		Short: "Inspect relational database schemas",
		Long: `schemascope reads table, column and key metadata from PostgreSQL,
MySQL, SQL Server, SQLite and Informix catalogs and reports it in one
dialect-independent shape.

The connection comes from the config file (default: schemascope.yaml) or
from --driver and --dsn.`,
		Version:      fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: "+config.DefaultPath+")")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&a.driver, "driver", "", "database driver, used with --dsn instead of a config file")
	pf.StringVar(&a.dsn, "dsn", "", "database DSN, used instead of a config file")
	pf.StringVar(&a.schema, "schema", "", "schema to inspect (default: the dialect default)")
	pf.StringVarP(&a.output, "output", "o", "json", "output format (json, yaml)")

	root.AddCommand(
		newDriversCmd(),
		newTablesCmd(a),
		newColumnsCmd(a),
		newColumnCmd(a),
		newExistsCmd(a),
		newPrimaryKeyCmd(a),
		newForeignKeysCmd(a),
		newOverviewCmd(a),
		newDescribeCmd(a),
		newProvisionCmd(a),
		newSampleCmd(a),
		newSnapshotCmd(a),
		newServeCmd(a),
	)
	return root
}

// loadConfig resolves the config from --dsn or the config file and applies
// flag overrides.
func (a *app) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if a.dsn != "" {
		cfg, err = config.ForDatabase(a.driver, a.dsn, a.schema)
	} else {
		cfg, err = config.Load(a.cfgFile)
	}
	if err != nil {
		return nil, err
	}

	if a.schema != "" {
		cfg.Database.Schema = a.schema
	}
	if a.logLevel != "" {
		if err := logger.ValidateLevel(a.logLevel); err != nil {
			return nil, err
		}
		cfg.Logging.Level = a.logLevel
	}
	return cfg, nil
}

// session is an open connection plus the inspector for its dialect.
type session struct {
	cfg *config.Config
	log *logger.Logger
	db  database.DB
	ins inspector.Inspector
}

func (a *app) open(ctx context.Context) (*session, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LoggerConfig())

	db, err := connect.Open(ctx, cfg.ConnConfig())
	if err != nil {
		return nil, err
	}

	ins, err := inspector.New(db, inspector.Options{Schema: cfg.Database.Schema, Logger: log})
	if err != nil {
		db.Close()
		return nil, err
	}

	log.With().
		Str("driver", string(db.Driver())).
		Str("schema", cfg.Database.Schema).
		Logger().
		Debug("connected")

	return &session{cfg: cfg, log: log, db: db, ins: ins}, nil
}

func (s *session) Close() {
	s.db.Close()
}

// context applies the configured query timeout to parent.
func (s *session) context(parent context.Context) (context.Context, context.CancelFunc) {
	if t := s.cfg.Database.QueryTimeout; t > 0 {
		return context.WithTimeout(parent, t)
	}
	return context.WithCancel(parent)
}

// describe captures the live schema with its connection details filled in.
func (s *session) describe(ctx context.Context) (*inspector.Description, error) {
	d, err := inspector.Describe(ctx, s.ins)
	if err != nil {
		return nil, err
	}
	d.Driver = string(s.db.Driver())
	d.Schema = s.cfg.Database.Schema
	return d, nil
}

// run opens a session for the duration of fn.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, s *session) (any, error)) error {
	s, err := a.open(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := s.context(cmd.Context())
	defer cancel()

	v, err := fn(ctx, s)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), a.output, v)
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unknown output format %q", format)
	}
}
