// Package inspector answers structural questions about a live database and
// normalizes the answers into one cross-dialect metadata model.
//
// Each engine lives in its own sub-package and registers a Factory from
// init(). Callers pick the implementation at startup:
//
//	import _ "github.com/koustreak/schemascope/internal/inspector/postgres"
//
//	ins, err := inspector.New(db, inspector.Options{Schema: "public"})
//	cols, err := ins.ColumnInfo(ctx, "orders")
//
// Inspectors hold no cache: every call is a fresh round-trip against the
// catalogs, and every returned value is owned by the caller.
package inspector

import (
	"context"
	"slices"
	"sync"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/logger"
)

// Inspector is the introspection contract shared by every dialect.
type Inspector interface {
	// Tables lists user tables, excluding system catalogs.
	Tables(ctx context.Context) ([]Table, error)

	// TableExists reports whether table is a user table.
	TableExists(ctx context.Context, table string) (bool, error)

	// Columns enumerates (table, column) pairs ordered by table and then by
	// declaration order. An empty table means every table.
	Columns(ctx context.Context, table string) ([]ColumnRef, error)

	// ColumnInfo returns full column metadata, one entry per (table, column).
	// An empty table means every table.
	ColumnInfo(ctx context.Context, table string) ([]Column, error)

	// Column returns a single column; a missing column is ErrKindNotFound.
	Column(ctx context.Context, table, column string) (Column, error)

	// ColumnExists reports whether table has column.
	ColumnExists(ctx context.Context, table, column string) (bool, error)

	// PrimaryKey returns the single primary-key column of table, or "" when
	// the table has no primary key or a composite one.
	PrimaryKey(ctx context.Context, table string) (string, error)

	// ForeignKeys lists referential constraints, one record per column pair.
	// An empty table means every table.
	ForeignKeys(ctx context.Context, table string) ([]ForeignKey, error)
}

// Provisioner is implemented by inspectors that depend on helper routines
// installed in the target database. Provision is idempotent.
type Provisioner interface {
	Provision(ctx context.Context) error
}

// Options configures an Inspector.
type Options struct {
	// Schema scopes introspection. Empty selects the dialect default.
	Schema string

	// Logger receives debug output. Nil means no logging.
	Logger *logger.Logger
}

// Log returns o.Logger or a no-op logger.
func (o Options) Log() *logger.Logger {
	if o.Logger == nil {
		return logger.Nop()
	}
	return o.Logger
}

// SchemaOr returns o.Schema, or def when it is empty.
func (o Options) SchemaOr(def string) string {
	if o.Schema == "" {
		return def
	}
	return o.Schema
}

// Factory builds an Inspector over an open connection.
type Factory func(db database.DB, opts Options) (Inspector, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[database.Driver]Factory)
)

// Register is called by each dialect package's init() function.
func Register(driver database.Driver, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[driver] = f
}

// Drivers lists the engines with a registered inspector, sorted.
func Drivers() []database.Driver {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]database.Driver, 0, len(registry))
	for d := range registry {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// New returns the inspector registered for db.Driver().
func New(db database.DB, opts Options) (Inspector, error) {
	if db == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "nil database connection")
	}

	registryMu.RLock()
	f, ok := registry[db.Driver()]
	registryMu.RUnlock()

	if !ok {
		return nil, errs.Newf(errs.ErrKindInvalidInput,
			"no inspector registered for driver %q", db.Driver())
	}
	return f(db, opts)
}
