package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/dosgrid/internal/cli"
)

// main is the entrypoint for the dosgrid application.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and turns its outcome into an exit code. An interrupt
// cancels ctx, which stops the sources and lets the network drain.
func run(ctx context.Context, args []string, outW, errW io.Writer) int {
	err := cli.Execute(ctx, args, outW, errW)
	if err == nil {
		return 0
	}
	fmt.Fprintln(errW, "Error:", err)
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return cli.ExitFailure
}
