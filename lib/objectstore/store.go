// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package objectstore holds the compilation results the manifests
// point at: one file per object, named by the object's fingerprint,
// transparently compressed, and verified against the fingerprint on
// every read.
//
// Object files carry a small fixed header (magic, format version,
// compression tag, uncompressed size) followed by the payload. Writes
// stage into the cache's tmp/ directory and rename into place, so a
// reader never sees a partial object. Because names are
// content-addressed, storing the same object twice is a no-op.
package objectstore

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/buildcache/lib/cachedir"
	"github.com/bureau-foundation/buildcache/lib/fingerprint"
)

// objectMagic opens every object file. A format constant: changing it
// breaks compatibility with existing caches.
var objectMagic = [4]byte{'B', 'c', 'O', 'b'}

// FormatVersion is the object file format generation this code reads
// and writes. Get rejects any other version.
const FormatVersion = 1

// headerSize is magic (4) + version (1) + compression tag (1) +
// uncompressed size (4).
const headerSize = 10

// StoreConfig configures an object [Store].
type StoreConfig struct {
	// Layout locates object files and the staging directory.
	Layout *cachedir.Layout

	// Compression is the codec applied to stored objects. Objects the
	// codec cannot shrink are stored uncompressed regardless.
	Compression CompressionTag

	// TempDir overrides the staging directory for in-flight writes.
	// It must be on the same filesystem as the layout root for the
	// final rename to stay atomic. Empty means the layout's tmp dir.
	TempDir string

	// Logger receives debug events. Defaults to slog.Default().
	Logger *slog.Logger
}

// Store reads and writes object files under a cache layout. A Store
// is stateless and safe for concurrent use.
type Store struct {
	layout      *cachedir.Layout
	compression CompressionTag
	tempDir     string
	logger      *slog.Logger
}

// NewStore creates an object store. StoreConfig.Layout is required.
func NewStore(config StoreConfig) (*Store, error) {
	if config.Layout == nil {
		return nil, fmt.Errorf("object store requires a cache layout")
	}
	store := &Store{
		layout:      config.Layout,
		compression: config.Compression,
		tempDir:     config.TempDir,
		logger:      config.Logger,
	}
	if store.tempDir == "" {
		store.tempDir = config.Layout.TempDir()
	}
	if store.logger == nil {
		store.logger = slog.Default()
	}
	return store, nil
}

// Put stores data as an object and returns the fingerprint under
// which it is retrievable. An object that is already present is left
// untouched: names are content-addressed, so an existing file with
// this name already holds these bytes.
func (s *Store) Put(data []byte) (fingerprint.Fingerprint, error) {
	f := fingerprint.HashBytes(data)
	finalPath := s.layout.ObjectPath(f)
	if _, err := os.Stat(finalPath); err == nil {
		return f, nil
	}

	payload, tag, err := compressWithFallback(data, s.compression)
	if err != nil {
		return fingerprint.Fingerprint{}, fmt.Errorf("compressing object: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return fingerprint.Fingerprint{}, fmt.Errorf("creating object shard: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.tempDir, "object-*.tmp")
	if err != nil {
		return fingerprint.Fingerprint{}, fmt.Errorf("creating temporary object: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	var header [headerSize]byte
	copy(header[:4], objectMagic[:])
	header[4] = FormatVersion
	header[5] = byte(tag)
	binary.BigEndian.PutUint32(header[6:10], f.Size)

	if _, err := tmpFile.Write(header[:]); err != nil {
		tmpFile.Close()
		return fingerprint.Fingerprint{}, fmt.Errorf("writing object header: %w", err)
	}
	if _, err := tmpFile.Write(payload); err != nil {
		tmpFile.Close()
		return fingerprint.Fingerprint{}, fmt.Errorf("writing object payload: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fingerprint.Fingerprint{}, fmt.Errorf("closing %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fingerprint.Fingerprint{}, fmt.Errorf("publishing object: %w", err)
	}
	success = true

	s.logger.Debug("object stored",
		"object", fingerprint.Format(f),
		"compression", tag.String(),
		"stored_bytes", headerSize+len(payload))
	return f, nil
}

// Get retrieves the object stored under f, decompressing and checking
// it against the fingerprint. An absent object is (nil, false, nil):
// the caller treats it as a miss. A present but damaged object is an
// error.
func (s *Store) Get(f fingerprint.Fingerprint) ([]byte, bool, error) {
	path := s.layout.ObjectPath(f)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading object: %w", err)
	}

	data, err := decodeObject(raw, f)
	if err != nil {
		return nil, false, fmt.Errorf("object %s: %w", path, err)
	}
	return data, true, nil
}

// Contains reports whether an object for f is present, without
// reading or verifying it.
func (s *Store) Contains(f fingerprint.Fingerprint) bool {
	_, err := os.Stat(s.layout.ObjectPath(f))
	return err == nil
}

// decodeObject parses and verifies one object file image against the
// fingerprint it is expected to hold.
func decodeObject(raw []byte, f fingerprint.Fingerprint) ([]byte, error) {
	if len(raw) < headerSize {
		return nil, fmt.Errorf("file is %d bytes, shorter than the %d byte header", len(raw), headerSize)
	}

	var magic [4]byte
	copy(magic[:], raw[:4])
	if magic != objectMagic {
		return nil, fmt.Errorf("not an object file (bad magic 0x%x)", magic)
	}
	if raw[4] != FormatVersion {
		return nil, fmt.Errorf("format version %d is not supported (this code supports version %d)", raw[4], FormatVersion)
	}

	tag := CompressionTag(raw[5])
	size := binary.BigEndian.Uint32(raw[6:10])
	if size != f.Size {
		return nil, fmt.Errorf("header size %d does not match fingerprint size %d", size, f.Size)
	}

	data, err := Decompress(raw[headerSize:], tag, int(size))
	if err != nil {
		return nil, err
	}
	if fingerprint.HashBytes(data) != f {
		return nil, fmt.Errorf("content does not match its fingerprint")
	}
	return data, nil
}
