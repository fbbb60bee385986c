// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/buildcache/cmd/buildcache/cli"
)

func statsCommand() *cli.Command {
	var (
		configPath string
		asJSON     bool
	)

	return &cli.Command{
		Name:    "stats",
		Summary: "Show cache statistics",
		Usage:   "buildcache stats [flags]",
		Description: `Print the cache's counters: hits, misses, stores, and errors.

Counters accumulate across all commands sharing the cache directory
until reset with "buildcache zero".`,
		Examples: []cli.Example{
			{
				Description: "Show counters",
				Command:     "buildcache stats",
			},
			{
				Description: "Machine-readable output for build dashboards",
				Command:     "buildcache stats --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("stats", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "path to config file (default: BUILDCACHE_CONFIG)")
			flagSet.BoolVar(&asJSON, "json", false, "print counters as JSON")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("stats takes no arguments")
			}

			env, err := openEnvironment(configPath, logger)
			if err != nil {
				return err
			}

			counters, err := env.stats.Load()
			if err != nil {
				return fmt.Errorf("loading statistics: %w", err)
			}

			if asJSON {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(counters)
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "hits\t%d\n", counters.Hits)
			fmt.Fprintf(tw, "misses\t%d\n", counters.Misses)
			if counters.Hits+counters.Misses > 0 {
				fmt.Fprintf(tw, "hit rate\t%.1f%%\n", counters.HitRate()*100)
			}
			fmt.Fprintf(tw, "puts\t%d\n", counters.Puts)
			fmt.Fprintf(tw, "errors\t%d\n", counters.Errors)
			fmt.Fprintf(tw, "stored bytes\t%d\n", counters.StoredBytes)
			return tw.Flush()
		},
	}
}

func zeroCommand() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:    "zero",
		Summary: "Reset cache statistics",
		Usage:   "buildcache zero [flags]",
		Description: `Reset all cache counters to zero.

Cached objects and manifests are untouched; only the statistics file
is rewritten. A corrupt statistics file is repaired by this command,
since it writes without reading the old counters.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("zero", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "path to config file (default: BUILDCACHE_CONFIG)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("zero takes no arguments")
			}

			env, err := openEnvironment(configPath, logger)
			if err != nil {
				return err
			}

			if err := env.stats.Zero(); err != nil {
				return fmt.Errorf("resetting statistics: %w", err)
			}
			fmt.Println("statistics zeroed")
			return nil
		},
	}
}
