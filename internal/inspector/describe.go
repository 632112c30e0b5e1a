package inspector

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Description is a point-in-time capture of a database schema.
type Description struct {
	Driver      string       `json:"driver" yaml:"driver"`
	Schema      string       `json:"schema,omitempty" yaml:"schema,omitempty"`
	CapturedAt  time.Time    `json:"captured_at" yaml:"captured_at"`
	Tables      []Table      `json:"tables" yaml:"tables"`
	Overview    Overview     `json:"overview" yaml:"overview"`
	ForeignKeys []ForeignKey `json:"foreign_keys" yaml:"foreign_keys"`
}

// Describe gathers tables, the overview and foreign keys concurrently. The
// first failure cancels the remaining queries.
func Describe(ctx context.Context, ins Inspector) (*Description, error) {
	d := &Description{CapturedAt: time.Now().UTC()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tables, err := ins.Tables(gctx)
		d.Tables = tables
		return err
	})
	g.Go(func() error {
		ov, err := BuildSchemaOverview(gctx, ins)
		d.Overview = ov
		return err
	})
	g.Go(func() error {
		fks, err := ins.ForeignKeys(gctx, "")
		d.ForeignKeys = fks
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
