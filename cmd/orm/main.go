// Package main provides the orm CLI.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/warning-explosive/Core-sub004/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	// Commands write their own errors through the output formatter.
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	os.Exit(cli.GetExitCode(err))
}
