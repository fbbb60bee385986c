// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/buildcache/cmd/buildcache/cli"
	"github.com/bureau-foundation/buildcache/lib/fingerprint"
	"github.com/bureau-foundation/buildcache/lib/stats"
)

func putCommand() *cli.Command {
	var (
		configPath string
		objectPath string
		includes   []string
		depsPath   string
	)

	return &cli.Command{
		Name:    "put",
		Summary: "Record a compilation result",
		Usage:   "buildcache put <key> --object <file> [flags]",
		Description: `Record a compilation result in the cache.

The object file is compressed and stored under its content
fingerprint, and a manifest entry is appended under the key recording
which input files the compilation read and how they hashed at this
moment. Input files come from repeated --include flags, from a
--deps-file written by the compiler (-MD/-MMD output or a plain path
list), or both.

The object fingerprint is printed to stdout. With read_only set in the
configuration, put logs and exits 0 without storing anything.`,
		Examples: []cli.Example{
			{
				Description: "Record an object with its compiler-emitted dependency file",
				Command:     "buildcache put 'gcc -O2 -c main.c' --object main.o --deps-file main.d",
			},
			{
				Description: "Record an object naming includes explicitly",
				Command:     "buildcache put 'gcc -O2 -c main.c' --object main.o --include main.c --include util.h",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("put", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "path to config file (default: BUILDCACHE_CONFIG)")
			flagSet.StringVar(&objectPath, "object", "", "compiled object file to store (required)")
			flagSet.StringArrayVar(&includes, "include", nil, "input file the compilation read (repeatable)")
			flagSet.StringVar(&depsPath, "deps-file", "", "dependency file listing input files")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("put requires exactly one <key> argument\n\nUsage: buildcache put <key> --object <file> [flags]")
			}
			if objectPath == "" {
				return fmt.Errorf("--object is required\n\nUsage: buildcache put <key> --object <file> [flags]")
			}
			return runPut(args[0], configPath, objectPath, includes, depsPath, logger)
		},
	}
}

func runPut(key, configPath, objectPath string, includes []string, depsPath string, logger *slog.Logger) error {
	env, err := openEnvironment(configPath, logger)
	if err != nil {
		return err
	}

	if env.cfg.ReadOnly {
		env.logger.Info("cache is read-only, not storing", "key", key)
		return nil
	}

	paths := append([]string(nil), includes...)
	if depsPath != "" {
		depsData, err := os.ReadFile(depsPath)
		if err != nil {
			env.recordStats(stats.Counters{Errors: 1})
			return fmt.Errorf("reading dependency file: %w", err)
		}
		paths = append(paths, parseDepsFile(depsData)...)
	}

	// Hash every input now: the manifest records the state of the
	// inputs at the moment the object was produced. The map also
	// collapses paths named by both --include and the deps file.
	included := make(map[string]fingerprint.Fingerprint, len(paths))
	for _, path := range paths {
		f, err := fingerprint.HashFile(path)
		if err != nil {
			env.recordStats(stats.Counters{Errors: 1})
			return fmt.Errorf("hashing input %s: %w", path, err)
		}
		included[path] = f
	}

	data, err := os.ReadFile(objectPath)
	if err != nil {
		env.recordStats(stats.Counters{Errors: 1})
		return fmt.Errorf("reading object %s: %w", objectPath, err)
	}

	object, err := env.objects.Put(data)
	if err != nil {
		env.recordStats(stats.Counters{Errors: 1})
		return fmt.Errorf("storing object: %w", err)
	}

	manifestPath := env.layout.ManifestPath(key)
	if err := os.MkdirAll(filepath.Dir(manifestPath), 0o755); err != nil {
		env.recordStats(stats.Counters{Errors: 1})
		return fmt.Errorf("creating manifest shard: %w", err)
	}
	if err := env.manifests.Put(manifestPath, object, included); err != nil {
		env.recordStats(stats.Counters{Errors: 1})
		return fmt.Errorf("recording manifest entry for %q: %w", key, err)
	}

	env.recordStats(stats.Counters{Puts: 1, StoredBytes: uint64(len(data))})
	fmt.Println(fingerprint.Format(object))
	return nil
}
