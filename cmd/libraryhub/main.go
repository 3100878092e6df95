// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

// Package main is the entry point for the LibraryHub CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/libraryhub/libraryhub/pkg/errutil"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd(nil)
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := cmd.ExecuteContext(ctx); err != nil {
		errutil.LogError(ctx, slog.Default(), "command failed", err)
		stop()
		os.Exit(exitCode(err))
	}
}
