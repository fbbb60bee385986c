// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the buildcache CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree in
// cmd/buildcache/commands and dispatched via [Command.Execute], which
// handles flag parsing, subcommand routing, and structured help output
// with examples. Execute threads a context and a logger down the tree so
// every Run function can honor cancellation and log structurally without
// global state.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3). This is implemented in
// suggest.go.
//
// [NewCommandLogger] builds the logger handed to Run functions: text
// output on terminals, JSON when stderr is piped or redirected.
// [SetLogLevel] adjusts the threshold once configuration is loaded.
// [ExitError] lets a command exit non-zero without an extra error line,
// for commands where a non-zero exit is an answer rather than a failure.
package cli
