// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fingerprint identifies file content in the build cache.
//
// A fingerprint is a (digest, size) pair: the first 16 bytes of the
// BLAKE3 hash of the file content, plus the content length. The cache
// compares fingerprints to decide whether an include file still has
// the content it had when a result was recorded, and uses them to name
// stored compilation results. Carrying the size alongside the digest
// means a length mismatch is detected without touching the hash, and
// it makes the canonical string form self-describing.
//
// The API surface:
//
//   - [HashFile] / [HashReader] -- stream content through BLAKE3 with
//     constant memory usage regardless of size
//   - [HashBytes] -- fingerprint an in-memory buffer
//   - [Format] / [Parse] -- the canonical "<hex digest>-<size>" string
//     form used for object file names, CLI output, and log fields
//
// File sizes are capped at 4 GiB - 1 (the size field is 32 bits in the
// manifest wire format); hashing anything larger is an error.
package fingerprint
