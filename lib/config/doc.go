// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for buildcache.
//
// Configuration is loaded from a single file specified by either the
// BUILDCACHE_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no ~/.config discovery and no
// automatic file search; when BUILDCACHE_CONFIG is unset, [Load]
// returns the built-in defaults, so the cache works on a machine with
// no configuration at all.
//
// The configuration file is the single source of truth: individual
// environment variables never override its values. The only expansion
// performed is ${HOME}, ${CACHE_DIR}, and ${VAR:-default} patterns in
// the path fields, so a checked-in file stays portable across home
// directories.
//
// Key exports:
//
//   - [Config] -- cache location, compression, logging, read-only flag
//   - [Default] -- per-user defaults under ~/.cache/buildcache
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other buildcache packages.
package config
