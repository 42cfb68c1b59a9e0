// Command httpxfer runs resumable, rate-limited HTTP transfers from the
// command line. Settings come from HTTPXFER_* environment variables and
// may be overridden per invocation with flags.
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

	// Restore default signal handling once the first signal arrives, so a
	// second one kills the process.
	context.AfterFunc(ctx, stop)

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
