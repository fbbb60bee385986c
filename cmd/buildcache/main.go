// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Buildcache is a compiler result cache. It stores the object file a
// compilation produced together with a manifest of the input files the
// compiler read, and serves the object back on later builds when none
// of those inputs changed. See the get, put, show, doctor, and stats
// subcommands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/buildcache/cmd/buildcache/cli"
	"github.com/bureau-foundation/buildcache/cmd/buildcache/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output (like get on a miss, or
		// doctor on failed checks) return an ExitError with the desired
		// exit code. Don't print a redundant "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return commands.Root().Execute(ctx, os.Args[1:], cli.NewCommandLogger())
}
