package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kailas-cloud/docqa/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, nil, os.Args[1:])
	stop()

	cli.PrintError(os.Stderr, err)
	os.Exit(cli.ExitCode(err))
}
