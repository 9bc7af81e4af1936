// Package main provides the entry point for the gridtail CLI tool.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/arloliu/streamgrid/cmd/gridtail/cmd"
)

// version is populated at build time.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd.Execute(ctx, version)
}
