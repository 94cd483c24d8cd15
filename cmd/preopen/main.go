// Package main is the entry point for the preopen launcher.
// It delegates immediately to the CLI command tree.
package main

import (
	"context"
	"os"

	"github.com/neoclaw-ai/preopen/internal/cli"
	"github.com/neoclaw-ai/preopen/internal/logging"
)

func main() {
	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		logging.Logger().Error("fatal error", "err", err)
		os.Exit(1)
	}
}
