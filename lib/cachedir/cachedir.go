// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cachedir defines the on-disk layout of a build cache
// directory and resolves cache keys to the files that hold them.
//
// A cache directory contains:
//
//	manifests/aa/bb/<hex>.manifest   one manifest per compilation key
//	objects/aa/bb/<fingerprint>.o    stored compilation results
//	tmp/                             staging area for atomic replaces
//	stats.cbor                       cache-wide counters
//
// Manifest names are BLAKE3 keyed hashes of the caller's cache key, so
// arbitrary key strings (compiler, flags, source path) map to fixed,
// filesystem-safe names. Both payload trees use two-level hex sharding
// to keep directory sizes manageable at millions of entries. tmp/ sits
// inside the cache root so staged files rename onto their final paths
// within one filesystem.
package cachedir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/buildcache/lib/fingerprint"
)

const (
	manifestsDirName = "manifests"
	objectsDirName   = "objects"
	tempDirName      = "tmp"
	statsFileName    = "stats.cbor"
)

// manifestNameDomainKey is the BLAKE3 key under which cache keys are
// hashed into manifest file names. A fixed constant — changing it
// orphans every manifest in existing caches. The bytes are the ASCII
// domain name, zero-padded to the 32 bytes keyed BLAKE3 requires.
var manifestNameDomainKey = [32]byte{
	'b', 'u', 'i', 'l', 'd', 'c', 'a', 'c', 'h', 'e', '.',
	'm', 'a', 'n', 'i', 'f', 'e', 's', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Layout resolves cache keys and fingerprints to paths under one
// cache root. The fixed directory skeleton is created by [New];
// per-shard directories are created by whoever writes into them.
type Layout struct {
	root string
}

// New creates a layout rooted at root, creating the root and its
// fixed subdirectories if missing.
func New(root string) (*Layout, error) {
	if root == "" {
		return nil, fmt.Errorf("cache directory path is empty")
	}
	for _, dir := range []string{root, filepath.Join(root, manifestsDirName), filepath.Join(root, objectsDirName), filepath.Join(root, tempDirName)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
		}
	}
	return &Layout{root: root}, nil
}

// Root returns the cache root directory.
func (l *Layout) Root() string {
	return l.root
}

// TempDir returns the staging directory for files that are renamed
// into place. It is on the same filesystem as every final path the
// layout produces.
func (l *Layout) TempDir() string {
	return filepath.Join(l.root, tempDirName)
}

// StatsPath returns the path of the cache-wide counters file.
func (l *Layout) StatsPath() string {
	return filepath.Join(l.root, statsFileName)
}

// ManifestRoot returns the directory holding all manifest shards.
func (l *Layout) ManifestRoot() string {
	return filepath.Join(l.root, manifestsDirName)
}

// ObjectRoot returns the directory holding all object shards.
func (l *Layout) ObjectRoot() string {
	return filepath.Join(l.root, objectsDirName)
}

// ManifestPath returns the sharded path of the manifest for a cache
// key. The key is hashed (BLAKE3, manifest name domain) so any string
// works, regardless of length or characters.
func (l *Layout) ManifestPath(key string) string {
	hasher, err := blake3.NewKeyed(manifestNameDomainKey[:])
	if err != nil {
		panic("cachedir: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(key))
	hexString := fmt.Sprintf("%x", hasher.Sum(nil))
	return filepath.Join(l.ManifestRoot(), hexString[:2], hexString[2:4], hexString+".manifest")
}

// ObjectPath returns the sharded path of the object file for a result
// fingerprint, named by the fingerprint's canonical string form.
func (l *Layout) ObjectPath(f fingerprint.Fingerprint) string {
	name := fingerprint.Format(f)
	return filepath.Join(l.ObjectRoot(), name[:2], name[2:4], name+".o")
}
