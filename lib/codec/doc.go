// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the build cache's standard CBOR encoding
// configuration.
//
// The cache uses two serialization formats with a clear boundary:
//
//   - The hand-rolled binary format for manifests and object files,
//     where layout is a compatibility contract (see lib/manifest and
//     lib/objectstore).
//   - CBOR for auxiliary on-disk state — currently the statistics
//     file — where the schema evolves and self-describing encoding
//     earns its keep.
//
// This package provides the shared CBOR modes so every consumer
// encodes identically without duplicating configuration. The encoder
// uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map keys,
// smallest integer encoding, no indefinite-length items. Same logical
// data always produces identical bytes.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types serialized through this package use json struct tags:
// fxamacker/cbor v2 reads them as fallback when cbor tags are absent,
// so the same type works for CLI --json output and the CBOR file.
package codec
