// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags at build time. The defaults describe a development
// build, which is what test binaries and plain "go build" produce.
var (
	// Version is the semantic version, set manually for releases.
	Version = "0.1.0-dev"

	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty is "true" when the build had uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"
)

// String returns the one-line version stamp used in logs and error
// reports.
func String() string {
	commit := GitCommit
	if GitDirty == "true" {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (%s, %s)", Version, commit, BuildTime)
}

// Full returns the multi-line report for the version subcommand: the
// stamp plus the toolchain and platform the binary was built with.
// The version command appends the cache format generations, which
// live with their codecs rather than here.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		String(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
