// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/buildcache/cmd/buildcache/cli"
	"github.com/bureau-foundation/buildcache/lib/fingerprint"
	"github.com/bureau-foundation/buildcache/lib/lockfile"
	"github.com/bureau-foundation/buildcache/lib/manifest"
)

func showCommand() *cli.Command {
	var (
		configPath   string
		manifestFile string
	)

	return &cli.Command{
		Name:    "show",
		Summary: "Dump the manifest recorded for a key",
		Usage:   "buildcache show <key> [flags]",
		Description: `Print a manifest's interned tables in human-readable form.

By default the key is mapped to its manifest file in the cache. With
--path, a manifest file is read directly instead, which works on
manifests copied out of a cache or belonging to another cache
directory.

Entries print oldest first; lookups check them in the reverse order.`,
		Examples: []cli.Example{
			{
				Description: "Dump the manifest for a compilation key",
				Command:     "buildcache show 'gcc -O2 -c main.c'",
			},
			{
				Description: "Dump a manifest file directly",
				Command:     "buildcache show --path ./extracted.manifest",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "path to config file (default: BUILDCACHE_CONFIG)")
			flagSet.StringVar(&manifestFile, "path", "", "read this manifest file instead of resolving a key")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if manifestFile != "" {
				if len(args) != 0 {
					return fmt.Errorf("--path and a <key> argument are mutually exclusive")
				}
				return dumpManifest(manifestFile, os.Stdout)
			}
			if len(args) != 1 {
				return fmt.Errorf("show requires exactly one <key> argument (or --path)\n\nUsage: buildcache show <key> [flags]")
			}

			env, err := openEnvironment(configPath, logger)
			if err != nil {
				return err
			}
			return dumpManifest(env.layout.ManifestPath(args[0]), os.Stdout)
		},
	}
}

// dumpManifest decodes the manifest file at path and writes its tables
// to w. The file is read under a shared lock so a concurrent put
// cannot swap it mid-read.
func dumpManifest(path string, w io.Writer) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no manifest at %s", path)
		}
		return fmt.Errorf("opening manifest: %w", err)
	}
	defer file.Close()

	if err := lockfile.Shared(file); err != nil {
		return err
	}
	defer lockfile.Release(file)

	m, err := manifest.Decode(file)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	fmt.Fprintf(w, "%s: %d paths, %d file infos, %d objects\n",
		path, len(m.Paths), len(m.FileInfos), len(m.Objects))

	if len(m.Paths) > 0 {
		fmt.Fprintf(w, "\nPaths:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
		for i, p := range m.Paths {
			fmt.Fprintf(tw, "  [%d]\t%s\n", i, p)
		}
		tw.Flush()
	}

	if len(m.FileInfos) > 0 {
		fmt.Fprintf(w, "\nFile infos:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
		for i, info := range m.FileInfos {
			fmt.Fprintf(tw, "  [%d]\tpath [%d]\t%s\n",
				i, info.PathIndex, fingerprint.Format(info.Fingerprint))
		}
		tw.Flush()
	}

	if len(m.Objects) > 0 {
		fmt.Fprintf(w, "\nObjects (oldest first):\n")
		for i, entry := range m.Objects {
			fmt.Fprintf(w, "  [%d] %s\n", i, fingerprint.Format(entry.Object))
			fmt.Fprintf(w, "      file infos:")
			for _, ref := range entry.FileInfoIndexes {
				fmt.Fprintf(w, " [%d]", ref)
			}
			fmt.Fprintln(w)
		}
	}

	return nil
}
