// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cachedir

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/buildcache/lib/fingerprint"
)

func TestNewCreatesSkeleton(t *testing.T) {
	root := filepath.Join(t.TempDir(), "cache")
	layout, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, dir := range []string{layout.Root(), layout.ManifestRoot(), layout.ObjectRoot(), layout.TempDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("stat %s: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}

func TestNewRejectsEmptyRoot(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty cache root")
	}
}

func TestManifestPathIsStableAndSharded(t *testing.T) {
	layout, err := New(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key := "gcc -O2 -c /src/main.c"
	first := layout.ManifestPath(key)
	if first != layout.ManifestPath(key) {
		t.Error("the same key resolved to different manifest paths")
	}
	if first == layout.ManifestPath("gcc -O3 -c /src/main.c") {
		t.Error("distinct keys resolved to the same manifest path")
	}

	relative, err := filepath.Rel(layout.ManifestRoot(), first)
	if err != nil {
		t.Fatalf("Rel: %v", err)
	}
	parts := strings.Split(relative, string(filepath.Separator))
	if len(parts) != 3 {
		t.Fatalf("manifest path %s is not two-level sharded", first)
	}
	if parts[0] != parts[2][:2] || parts[1] != parts[2][2:4] {
		t.Errorf("shard directories %s/%s do not match file name %s", parts[0], parts[1], parts[2])
	}
	if !strings.HasSuffix(parts[2], ".manifest") {
		t.Errorf("manifest file %s lacks the .manifest suffix", parts[2])
	}
}

func TestManifestPathHandlesArbitraryKeys(t *testing.T) {
	layout, err := New(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Keys with separators, NULs, and excessive length must all map to
	// fixed-size safe file names.
	keys := []string{
		"../../../etc/passwd",
		"key with\x00NUL",
		strings.Repeat("long", 10000),
		"",
	}
	seen := make(map[string]bool)
	for _, key := range keys {
		path := layout.ManifestPath(key)
		if !strings.HasPrefix(path, layout.ManifestRoot()) {
			t.Errorf("key %.20q escaped the manifest root: %s", key, path)
		}
		if seen[path] {
			t.Errorf("key %.20q collided with an earlier key", key)
		}
		seen[path] = true
	}
}

func TestObjectPathUsesFingerprintName(t *testing.T) {
	layout, err := New(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	f := fingerprint.HashBytes([]byte("object code"))
	path := layout.ObjectPath(f)
	base := filepath.Base(path)
	if base != fingerprint.Format(f)+".o" {
		t.Errorf("object file name %s does not match fingerprint %s", base, fingerprint.Format(f))
	}
	if !strings.HasPrefix(path, layout.ObjectRoot()) {
		t.Errorf("object path %s is outside the object root", path)
	}
}

func TestTempDirSharesFilesystemWithPayloads(t *testing.T) {
	layout, err := New(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if filepath.Dir(layout.TempDir()) != layout.Root() {
		t.Error("tmp/ must live directly under the cache root")
	}
}
