// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest implements the result manifest at the heart of the
// build cache: the record that maps one compilation (one manifest
// file) to the results produced for it under different include-file
// contents.
//
// A compilation's command line and source text hash to a manifest
// name, but the same source can compile to different objects as its
// include files change. The manifest holds one entry per recorded
// result, each listing the exact (path, fingerprint) observations of
// every include file that went into it. A lookup re-fingerprints those
// files and returns the newest entry whose observations all still
// hold — a hit proves the cached object is byte-identical to what the
// compiler would produce today.
//
// The package is organized in layers:
//
//   - Types: the in-memory [Manifest] with its three tables. Paths and
//     (path, fingerprint) observations are interned — stored once and
//     referenced by 16-bit index — so entries that share include files
//     (the overwhelmingly common case) stay cheap.
//
//   - Codec: [Decode] and [Manifest.Encode] for the binary on-disk
//     form, a fixed big-endian layout with a 4-byte magic and a
//     version. Decoding is fail-closed: truncation, unterminated
//     paths, out-of-range table references, a foreign magic, or an
//     unknown version abort with an error matching
//     [ErrCorruptManifest], and no partial manifest is ever returned.
//     A zero-length file decodes as a valid empty manifest.
//
//   - Verification: the per-lookup scan that re-fingerprints include
//     files through a [Hasher]. Fingerprints are memoized per lookup
//     so a path shared by many entries is hashed once; hash failures
//     make the affected entry non-matching without failing the lookup
//     and without being memoized.
//
//   - Store: [Store.Get] and [Store.Put], the filesystem transactions.
//     Get holds a shared flock while reading; Put holds an exclusive
//     flock across its whole read-append-rewrite span and publishes
//     the new manifest with an atomic rename, so readers see either
//     the old or the new file, never a partial one.
//
// Manifest files are self-contained: no state persists between calls,
// and everything shared lives in the file mediated by the lock and
// rename protocol.
package manifest
