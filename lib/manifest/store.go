// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/buildcache/lib/fingerprint"
	"github.com/bureau-foundation/buildcache/lib/lockfile"
)

// StoreConfig configures a manifest [Store].
type StoreConfig struct {
	// TempDir is the staging directory for rewritten manifests. It
	// must be on the same filesystem as the manifest files so the
	// final rename is atomic.
	TempDir string

	// Hasher fingerprints include files during Get verification.
	// Defaults to [fingerprint.HashFile].
	Hasher Hasher

	// Logger receives debug events for hits, updates, and degraded
	// verification. Defaults to slog.Default().
	Logger *slog.Logger
}

// Store runs manifest lookups and updates against the filesystem.
// Lookups hold a shared lock for the read; updates hold an exclusive
// lock for the whole read-append-rewrite span and publish through an
// atomic rename. A Store is stateless between calls and safe for
// concurrent use.
type Store struct {
	tempDir string
	hasher  Hasher
	logger  *slog.Logger
}

// NewStore creates a manifest store. StoreConfig.TempDir is required.
func NewStore(config StoreConfig) (*Store, error) {
	if config.TempDir == "" {
		return nil, fmt.Errorf("manifest store requires a temp directory")
	}
	store := &Store{
		tempDir: config.TempDir,
		hasher:  config.Hasher,
		logger:  config.Logger,
	}
	if store.hasher == nil {
		store.hasher = HasherFunc(fingerprint.HashFile)
	}
	if store.logger == nil {
		store.logger = slog.Default()
	}
	return store, nil
}

// Get looks up a reusable result in the manifest at manifestPath. It
// returns the object fingerprint of the newest entry whose recorded
// include files all still hold their fingerprints, with ok true. A
// missing manifest file, or a manifest with no still-valid entry, is
// a plain miss (ok false, nil error). Lock failures and undecodable
// manifests are errors: the caller decides whether to degrade.
func (s *Store) Get(manifestPath string) (fingerprint.Fingerprint, bool, error) {
	file, err := os.Open(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fingerprint.Fingerprint{}, false, nil
		}
		return fingerprint.Fingerprint{}, false, fmt.Errorf("opening manifest: %w", err)
	}
	defer file.Close()

	if err := lockfile.Shared(file); err != nil {
		return fingerprint.Fingerprint{}, false, err
	}
	defer lockfile.Release(file)

	m, err := Decode(file)
	if err != nil {
		return fingerprint.Fingerprint{}, false, fmt.Errorf("decoding %s: %w", manifestPath, err)
	}

	hashed := make(map[string]fingerprint.Fingerprint)
	for i := len(m.Objects) - 1; i >= 0; i-- {
		entry := m.Objects[i]
		if s.verifyObject(m, entry, hashed) {
			s.logger.Debug("manifest hit",
				"manifest", manifestPath,
				"object", fingerprint.Format(entry.Object))
			return entry.Object, true, nil
		}
	}
	return fingerprint.Fingerprint{}, false, nil
}

// Put records object and the include files it was built from in the
// manifest at manifestPath, creating the manifest if absent. The
// existing manifest is decoded, the entry appended, and the result
// written to a temporary file that replaces the original via rename —
// the manifest visible under manifestPath is always complete. An
// undecodable existing manifest aborts the update and leaves the file
// untouched.
func (s *Store) Put(manifestPath string, object fingerprint.Fingerprint, includedFiles map[string]fingerprint.Fingerprint) error {
	file, err := os.OpenFile(manifestPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("opening manifest: %w", err)
	}
	defer file.Close()

	if err := lockfile.Exclusive(file); err != nil {
		return err
	}
	defer lockfile.Release(file)

	m, err := Decode(file)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", manifestPath, err)
	}

	if err := m.AppendObject(object, includedFiles); err != nil {
		return fmt.Errorf("appending to %s: %w", manifestPath, err)
	}

	tmpFile, err := os.CreateTemp(s.tempDir, "manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary manifest: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := m.Encode(tmpFile); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, manifestPath); err != nil {
		return fmt.Errorf("replacing %s: %w", manifestPath, err)
	}
	success = true

	s.logger.Debug("manifest updated",
		"manifest", manifestPath,
		"object", fingerprint.Format(object),
		"entries", len(m.Objects))
	return nil
}
