// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the buildcache configuration.
type Config struct {
	// CacheDir is the root directory of the cache. Manifests, objects,
	// and statistics all live under it.
	CacheDir string `yaml:"cache_dir"`

	// TempDir is the staging directory for in-flight writes before
	// their atomic rename into place. It must be on the same
	// filesystem as CacheDir. Empty means tmp/ under CacheDir.
	TempDir string `yaml:"temp_dir"`

	// Compression selects the codec for stored objects: none, lz4, or
	// zstd. Objects the codec cannot shrink are stored raw regardless
	// of this setting.
	Compression string `yaml:"compression"`

	// LogLevel sets the logging threshold: debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`

	// ReadOnly blocks new objects and manifest entries. Lookups and
	// statistics still work, so an immutable shared cache can serve
	// many readers.
	ReadOnly bool `yaml:"read_only"`
}

// Default returns the default configuration: a per-user cache under
// ~/.cache/buildcache with zstd compression.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		CacheDir:    filepath.Join(homeDir, ".cache", "buildcache"),
		Compression: "zstd",
		LogLevel:    "info",
	}
}

// Load loads configuration from the file named by the BUILDCACHE_CONFIG
// environment variable.
//
// When the variable is unset, the defaults are returned: a compiler
// cache has to work on a machine with no configuration at all. When it
// is set, the named file must exist and parse; a broken explicit
// configuration is an error, never silently ignored.
func Load() (*Config, error) {
	configPath := os.Getenv("BUILDCACHE_CONFIG")
	if configPath == "" {
		return Default(), nil
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merged over
// the defaults.
//
// The config file is the single source of truth. Environment variables
// do not override config values - this keeps a build's cache behavior
// auditable from the file alone. The only expansion performed is ${VAR}
// and ${VAR:-default} patterns in the path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()

	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in the
// path fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.CacheDir = expandVars(c.CacheDir, vars)
	vars["CACHE_DIR"] = c.CacheDir // For dependent paths.

	c.TempDir = expandVars(c.TempDir, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.CacheDir == "" {
		errs = append(errs, fmt.Errorf("cache_dir is required"))
	}

	compressionValues := []string{"none", "lz4", "zstd"}
	if !contains(compressionValues, c.Compression) {
		errs = append(errs, fmt.Errorf("compression must be one of: %v", compressionValues))
	}

	logLevelValues := []string{"debug", "info", "warn", "error"}
	if !contains(logLevelValues, c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level must be one of: %v", logLevelValues))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Level returns the slog level selected by LogLevel. Values that
// Validate would reject map to Info.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
