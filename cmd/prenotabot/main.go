// File: cmd/prenotabot/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"prenotabot/cmd"
)

// main is the entry point of the application.
func main() {
	// Listen for interrupt signals so Ctrl+C unwinds the watch loop and the
	// browser teardown instead of killing the process mid-action.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			// Graceful shutdown requested by the operator.
			os.Exit(0)
		}
		os.Exit(1)
	}
}
