// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete buildcache CLI command tree.
//
// Each subcommand lives in its own file with a constructor returning a
// [cli.Command]. Root assembles them; cmd/buildcache/main.go executes
// the result. Commands share cache plumbing through the environment
// type, which turns the loaded configuration into an opened cache
// layout and its stores.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/buildcache/cmd/buildcache/cli"
	"github.com/bureau-foundation/buildcache/lib/manifest"
	"github.com/bureau-foundation/buildcache/lib/objectstore"
	"github.com/bureau-foundation/buildcache/lib/version"
)

// Root builds and returns the complete buildcache CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "buildcache",
		Description: `Buildcache: a compiler result cache.

Buildcache remembers which object file a compilation produced and which
input files the compiler read to produce it. When the same compilation
is attempted again and none of those inputs changed, the cached object
is served instead of recompiling.`,
		Subcommands: []*cli.Command{
			getCommand(),
			putCommand(),
			showCommand(),
			doctorCommand(),
			statsCommand(),
			zeroCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Printf("buildcache %s\n", version.Full())
					fmt.Printf("  Manifest format: %d\n", manifest.FormatVersion)
					fmt.Printf("  Object format: %d\n", objectstore.FormatVersion)
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Record a compilation result with its include set",
				Command:     "buildcache put 'gcc -O2 -c main.c' --object main.o --deps-file main.d",
			},
			{
				Description: "Look the same compilation up on the next build",
				Command:     "buildcache get 'gcc -O2 -c main.c' -o main.o",
			},
			{
				Description: "Inspect the manifest recorded for a key",
				Command:     "buildcache show 'gcc -O2 -c main.c'",
			},
			{
				Description: "Verify the integrity of the whole cache",
				Command:     "buildcache doctor",
			},
			{
				Description: "Show hit and miss counters",
				Command:     "buildcache stats",
			},
		},
	}
}
