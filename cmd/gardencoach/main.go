// Command gardencoach runs the Garden Method coaching tools from a terminal:
// a live voice pitch coach on the host microphone and speaker, the text
// mentor features, and the seed garden helpers.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "gardencoach: %v\n", err)
		}
		return 1
	}
	return 0
}
