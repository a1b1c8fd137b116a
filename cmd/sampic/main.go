// Command sampic takes a screenshot, lets you select a region and copies a
// link to the stored image.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(defaultApp()).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
