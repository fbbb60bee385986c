// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/buildcache/cmd/buildcache/cli"
	"github.com/bureau-foundation/buildcache/lib/fingerprint"
	"github.com/bureau-foundation/buildcache/lib/lockfile"
	"github.com/bureau-foundation/buildcache/lib/manifest"
)

func doctorCommand() *cli.Command {
	var (
		configPath string
		jobs       int
	)

	return &cli.Command{
		Name:    "doctor",
		Summary: "Verify the integrity of the whole cache",
		Usage:   "buildcache doctor [flags]",
		Description: `Scan every manifest and object file in the cache and verify it.

Manifests must decode cleanly, and every object they reference must be
present. Object files must sit at their content-addressed location,
decompress, and hash back to the fingerprint in their name. Problems
are printed one per line; the scan always visits everything.

Exits 0 for a clean cache, 1 when problems were found.`,
		Examples: []cli.Example{
			{
				Description: "Check the cache after a machine crash",
				Command:     "buildcache doctor",
			},
			{
				Description: "Limit the scan to four parallel workers",
				Command:     "buildcache doctor --jobs 4",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("doctor", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "path to config file (default: BUILDCACHE_CONFIG)")
			flagSet.IntVar(&jobs, "jobs", runtime.GOMAXPROCS(0), "parallel verification workers")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("doctor takes no arguments")
			}
			return runDoctor(ctx, configPath, jobs, logger)
		},
	}
}

// doctorReport collects problems found by concurrent checkers.
type doctorReport struct {
	mu       sync.Mutex
	problems []string
}

func (r *doctorReport) problem(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.problems = append(r.problems, fmt.Sprintf(format, args...))
}

func runDoctor(ctx context.Context, configPath string, jobs int, logger *slog.Logger) error {
	env, err := openEnvironment(configPath, logger)
	if err != nil {
		return err
	}
	if jobs < 1 {
		jobs = 1
	}

	report := &doctorReport{}

	manifestFiles, err := collectFiles(env.layout.ManifestRoot(), ".manifest", report)
	if err != nil {
		return fmt.Errorf("scanning manifests: %w", err)
	}
	objectFiles, err := collectFiles(env.layout.ObjectRoot(), ".o", report)
	if err != nil {
		return fmt.Errorf("scanning objects: %w", err)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(jobs)

	// Checkers record problems in the report instead of returning
	// errors: one bad file must not stop the scan. The only error a
	// checker returns is context cancellation.
	for _, path := range manifestFiles {
		path := path
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			checkManifestFile(env, path, report)
			return nil
		})
	}
	for _, path := range objectFiles {
		path := path
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			checkObjectFile(env, path, report)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	sort.Strings(report.problems)
	for _, problem := range report.problems {
		fmt.Println(problem)
	}
	fmt.Printf("checked %d manifests and %d objects: %d problems\n",
		len(manifestFiles), len(objectFiles), len(report.problems))

	if len(report.problems) > 0 {
		return &cli.ExitError{Code: 1}
	}
	return nil
}

// collectFiles returns every regular file under root carrying the
// given suffix. Files with a foreign name do not belong in the cache
// tree and are recorded as problems.
func collectFiles(root, suffix string, report *doctorReport) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if !strings.HasSuffix(entry.Name(), suffix) {
			report.problem("%s: unexpected file in cache tree", path)
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// checkManifestFile verifies that a manifest decodes and that every
// object it references is still present in the object store.
func checkManifestFile(env *environment, path string, report *doctorReport) {
	file, err := os.Open(path)
	if err != nil {
		report.problem("%s: %v", path, err)
		return
	}
	defer file.Close()

	if err := lockfile.Shared(file); err != nil {
		report.problem("%s: %v", path, err)
		return
	}
	defer lockfile.Release(file)

	m, err := manifest.Decode(file)
	if err != nil {
		report.problem("%s: %v", path, err)
		return
	}

	for i, entry := range m.Objects {
		if !env.objects.Contains(entry.Object) {
			report.problem("%s: entry %d references missing object %s",
				path, i, fingerprint.Format(entry.Object))
		}
	}
}

// checkObjectFile verifies an object file round-trips: its name parses
// as a fingerprint, it sits at that fingerprint's location, and its
// content decompresses and hashes back to the name.
func checkObjectFile(env *environment, path string, report *doctorReport) {
	name := strings.TrimSuffix(filepath.Base(path), ".o")
	f, err := fingerprint.Parse(name)
	if err != nil {
		report.problem("%s: unrecognized object file name: %v", path, err)
		return
	}

	_, found, err := env.objects.Get(f)
	if err != nil {
		report.problem("%s: %v", path, err)
		return
	}
	if !found {
		report.problem("%s: not at its content-addressed location", path)
	}
}
