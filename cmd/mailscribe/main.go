// Package main is the entry point for the mailscribe CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// version will be set at build time
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
