// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"github.com/bureau-foundation/buildcache/lib/fingerprint"
)

// Hasher computes the current fingerprint of a file on disk. The
// default is [fingerprint.HashFile]; tests and callers that layer
// their own caching substitute an implementation.
type Hasher interface {
	HashFile(path string) (fingerprint.Fingerprint, error)
}

// HasherFunc adapts a function to the [Hasher] interface.
type HasherFunc func(path string) (fingerprint.Fingerprint, error)

func (f HasherFunc) HashFile(path string) (fingerprint.Fingerprint, error) {
	return f(path)
}

// verifyObject reports whether every include file referenced by entry
// still carries the fingerprint recorded for it. hashed memoizes
// fingerprints across the object entries of one lookup, so a path
// shared by several entries is hashed at most once. A hash failure
// (file removed, unreadable) makes this entry non-matching and is
// deliberately not memoized: a later entry referencing the same path
// hashes it again rather than inheriting the failure.
func (s *Store) verifyObject(m *Manifest, entry ObjectEntry, hashed map[string]fingerprint.Fingerprint) bool {
	for _, index := range entry.FileInfoIndexes {
		info := m.FileInfos[index]
		path := m.Paths[info.PathIndex]

		current, ok := hashed[path]
		if !ok {
			fresh, err := s.hasher.HashFile(path)
			if err != nil {
				s.logger.Debug("include file hash failed", "path", path, "error", err)
				return false
			}
			hashed[path] = fresh
			current = fresh
		}

		if current != info.Fingerprint {
			return false
		}
	}
	return true
}
