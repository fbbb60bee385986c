// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries the build stamp of the buildcache binary.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//	go build -ldflags "\
//	  -X github.com/bureau-foundation/buildcache/lib/version.Version=1.0.0 \
//	  -X github.com/bureau-foundation/buildcache/lib/version.GitCommit=$(git rev-parse --short HEAD) \
//	  -X github.com/bureau-foundation/buildcache/lib/version.GitDirty=$(test -n "$(git status --porcelain)" && echo true || echo false) \
//	  -X github.com/bureau-foundation/buildcache/lib/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// [String] formats them as a one-line stamp, [Full] as the multi-line
// report behind "buildcache version". Cache format generations are not
// part of the build stamp; they are constants of the manifest and
// object codecs and the version command reports them separately.
package version
