// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/buildcache/cmd/buildcache/cli"
	"github.com/bureau-foundation/buildcache/lib/fingerprint"
	"github.com/bureau-foundation/buildcache/lib/stats"
)

func getCommand() *cli.Command {
	var (
		configPath string
		objectOut  string
	)

	return &cli.Command{
		Name:    "get",
		Summary: "Look up a compilation result",
		Usage:   "buildcache get <key> [flags]",
		Description: `Look up the cached result of a compilation.

The key identifies the compilation (typically the preprocessed command
line). Every result recorded under the key is checked newest first; a
result whose recorded input files all still hash the same is a hit.

On a hit, the object fingerprint is printed to stdout and, with -o,
the cached object is written to the named file. A miss exits 1 with no
output.`,
		Examples: []cli.Example{
			{
				Description: "Check for a cached object",
				Command:     "buildcache get 'gcc -O2 -c main.c'",
			},
			{
				Description: "Retrieve the object into the build tree",
				Command:     "buildcache get 'gcc -O2 -c main.c' -o main.o",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("get", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "path to config file (default: BUILDCACHE_CONFIG)")
			flagSet.StringVarP(&objectOut, "object-out", "o", "", "write the cached object to this file on a hit")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("get requires exactly one <key> argument\n\nUsage: buildcache get <key> [flags]")
			}
			return runGet(args[0], configPath, objectOut, logger)
		},
	}
}

func runGet(key, configPath, objectOut string, logger *slog.Logger) error {
	env, err := openEnvironment(configPath, logger)
	if err != nil {
		return err
	}

	manifestPath := env.layout.ManifestPath(key)
	object, ok, err := env.manifests.Get(manifestPath)
	if err != nil {
		env.recordStats(stats.Counters{Errors: 1})
		return fmt.Errorf("looking up %q: %w", key, err)
	}
	if !ok {
		env.recordStats(stats.Counters{Misses: 1})
		env.logger.Debug("cache miss", "key", key)
		return &cli.ExitError{Code: 1}
	}

	if objectOut != "" {
		data, found, err := env.objects.Get(object)
		if err != nil {
			env.recordStats(stats.Counters{Errors: 1})
			return fmt.Errorf("reading object %s: %w", fingerprint.Format(object), err)
		}
		if !found {
			// The manifest names an object file that is gone. Treat
			// as a miss so the caller recompiles and re-stores it.
			env.recordStats(stats.Counters{Misses: 1})
			env.logger.Debug("manifest hit but object missing",
				"key", key, "object", fingerprint.Format(object))
			return &cli.ExitError{Code: 1}
		}
		if err := os.WriteFile(objectOut, data, 0o644); err != nil {
			env.recordStats(stats.Counters{Errors: 1})
			return fmt.Errorf("writing object to %s: %w", objectOut, err)
		}
	}

	env.recordStats(stats.Counters{Hits: 1})
	env.logger.Debug("cache hit", "key", key, "object", fingerprint.Format(object))
	fmt.Println(fingerprint.Format(object))
	return nil
}
