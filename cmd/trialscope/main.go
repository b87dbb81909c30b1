package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"trialscope/internal/cli"
	"trialscope/internal/util/logx"
	"trialscope/internal/version"
)

func main() {
	logx.SetLevelFromEnv()

	// Setup cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logx.Debugf("starting trialscope %s", version.String())
	if err := cli.Execute(ctx); err != nil {
		logx.Errorf("trialscope exited with error: %v", err)
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		cancel()
		os.Exit(1)
	}
}
