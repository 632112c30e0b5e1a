// Command schemascope inspects relational database schemas.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/koustreak/schemascope/internal/inspector/informix"
	_ "github.com/koustreak/schemascope/internal/inspector/mssql"
	_ "github.com/koustreak/schemascope/internal/inspector/mysql"
	_ "github.com/koustreak/schemascope/internal/inspector/postgres"
	_ "github.com/koustreak/schemascope/internal/inspector/sqlite"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
