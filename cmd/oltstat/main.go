package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rileyhilliard/oltstat/internal/cli"
	"github.com/rileyhilliard/oltstat/internal/secret"
)

// Version info set via ldflags at build time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123 -X main.date=2024-01-01"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()

	// os.Exit skips defers; wipe the password enclave first.
	secret.Purge()
	os.Exit(code)
}
