// assetsync keeps field asset records consistent across the device registry,
// the fixture store and the tracking board.
//
// Field crews report asset changes through a GIS layer, which calls the
// webhook served by "assetsync serve". Each change is classified by its
// serial, reconciled into the systems that own that class of device and
// recorded on the tracking board.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
