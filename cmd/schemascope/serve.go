package main

import (
	"github.com/spf13/cobra"

	"github.com/koustreak/schemascope/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the schema over a read-only HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if addr == "" {
				addr = s.cfg.Server.Addr
			}
			srv := server.New(s.db, s.ins, s.log, server.Options{
				Addr:            addr,
				Schema:          s.cfg.Database.Schema,
				ReadTimeout:     s.cfg.Server.ReadTimeout,
				WriteTimeout:    s.cfg.Server.WriteTimeout,
				ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
				QueryTimeout:    s.cfg.Database.QueryTimeout,
				MaxRows:         s.cfg.Server.MaxRows,
			})
			return srv.ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from config)")
	return cmd
}
