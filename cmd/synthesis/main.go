// Command synthesis is the CLI entry point for the composition root in
// pkg/synthesis, following the teacher's main.go-delegates-to-cmd/root
// split: main stays a thin ExecuteContext call, every flag and
// subcommand lives under this package.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Execute(ctx, os.Args[1:]...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
