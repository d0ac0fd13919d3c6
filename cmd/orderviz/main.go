// Command orderviz lays out and explores order/document relationship graphs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		bad.Fprintln(os.Stderr, "orderviz:", err)
		os.Exit(1)
	}
}
