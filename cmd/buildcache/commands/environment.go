// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/buildcache/cmd/buildcache/cli"
	"github.com/bureau-foundation/buildcache/lib/cachedir"
	"github.com/bureau-foundation/buildcache/lib/config"
	"github.com/bureau-foundation/buildcache/lib/manifest"
	"github.com/bureau-foundation/buildcache/lib/objectstore"
	"github.com/bureau-foundation/buildcache/lib/stats"
)

// environment bundles the loaded configuration with the opened cache
// stores every command operates on.
type environment struct {
	cfg       *config.Config
	layout    *cachedir.Layout
	manifests *manifest.Store
	objects   *objectstore.Store
	stats     *stats.File
	logger    *slog.Logger
}

// openEnvironment loads configuration (from configPath if given,
// otherwise via BUILDCACHE_CONFIG or defaults), validates it, and opens
// the cache it describes. The cache directory skeleton is created if
// missing, so the first command against a fresh machine just works.
func openEnvironment(configPath string, logger *slog.Logger) (*environment, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cli.SetLogLevel(cfg.Level())

	layout, err := cachedir.New(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("opening cache directory: %w", err)
	}

	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = layout.TempDir()
	} else if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}

	compression, err := objectstore.ParseCompressionTag(cfg.Compression)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	manifests, err := manifest.NewStore(manifest.StoreConfig{
		TempDir: tempDir,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	objects, err := objectstore.NewStore(objectstore.StoreConfig{
		Layout:      layout,
		Compression: compression,
		TempDir:     tempDir,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	return &environment{
		cfg:       cfg,
		layout:    layout,
		manifests: manifests,
		objects:   objects,
		stats:     stats.NewFile(layout.StatsPath(), tempDir),
		logger:    logger,
	}, nil
}

// recordStats merges delta into the statistics file. Failures are
// logged, not returned: counters never decide a command's outcome.
func (e *environment) recordStats(delta stats.Counters) {
	if err := e.stats.Apply(delta); err != nil {
		e.logger.Warn("updating statistics failed", "error", err)
	}
}
