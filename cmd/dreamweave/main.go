package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dreamweave/internal/services"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode separates bad input (2) from media tool failures (3) so scripts
// can tell a broken session from a broken ffmpeg.
func exitCode(err error) int {
	switch services.Marker(err) {
	case nil:
		if errors.Is(err, context.Canceled) {
			return 130
		}
		return 1
	case services.ErrExternalTool, services.ErrTimeout:
		return 3
	default:
		return 2
	}
}
