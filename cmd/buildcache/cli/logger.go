// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// logLevel is the shared threshold for loggers built by
// NewCommandLogger. It defaults to Info; SetLogLevel adjusts it once
// the configuration has been loaded.
var logLevel slog.LevelVar

// SetLogLevel sets the logging threshold for all command loggers,
// including ones already built. Commands call this after loading
// configuration, so a config file's log_level takes effect for the
// rest of the run.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// NewCommandLogger creates a structured logger for CLI command
// operations. When stderr is a terminal, uses slog.TextHandler for
// human-readable output. When stderr is piped or redirected (CI,
// scripts, build systems), uses slog.JSONHandler for machine-parseable
// output.
//
// Callers scope the logger with command-specific context via With():
//
//	logger := cli.NewCommandLogger().With(
//	    "command", "put",
//	    "cache_dir", cfg.CacheDir,
//	)
func NewCommandLogger() *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: &logLevel}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
