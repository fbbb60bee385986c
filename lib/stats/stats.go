// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package stats maintains the cache-wide activity counters.
//
// Counters live in a single CBOR file in the cache root. Updates are
// serialized through a sidecar lock file — the lock must be an inode
// that survives the update, and the counters file itself does not
// (it is replaced by rename, so a reader never sees a torn write).
// Reads are lock-free for the same reason.
package stats

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/buildcache/lib/codec"
	"github.com/bureau-foundation/buildcache/lib/lockfile"
)

// Counters is a snapshot of cache activity. Fields only ever grow,
// except through [File.Zero]. json tags serve both the CBOR file and
// CLI --json output (see lib/codec).
type Counters struct {
	// Hits counts lookups that returned a reusable result.
	Hits uint64 `json:"hits"`

	// Misses counts lookups with no reusable result, including
	// lookups against manifests that do not exist yet.
	Misses uint64 `json:"misses"`

	// Puts counts recorded results.
	Puts uint64 `json:"puts"`

	// Errors counts operations that failed (lock failures, corrupt
	// manifests, unwritable cache).
	Errors uint64 `json:"errors"`

	// StoredBytes sums the size of object content recorded by puts,
	// before compression. A measure of put volume, not of disk usage:
	// deduplicated and compressed storage makes the on-disk footprint
	// smaller.
	StoredBytes uint64 `json:"stored_bytes"`
}

// Add accumulates delta into c field by field.
func (c *Counters) Add(delta Counters) {
	c.Hits += delta.Hits
	c.Misses += delta.Misses
	c.Puts += delta.Puts
	c.Errors += delta.Errors
	c.StoredBytes += delta.StoredBytes
}

// HitRate returns hits as a fraction of all lookups, or 0 when no
// lookup has happened yet.
func (c Counters) HitRate() float64 {
	lookups := c.Hits + c.Misses
	if lookups == 0 {
		return 0
	}
	return float64(c.Hits) / float64(lookups)
}

// File is the on-disk counters record shared by every process using
// the cache.
type File struct {
	path    string
	tempDir string
}

// NewFile creates a handle on the counters file at path. tempDir is
// the staging directory for rewrites and must be on the same
// filesystem as path.
func NewFile(path, tempDir string) *File {
	return &File{path: path, tempDir: tempDir}
}

// Load reads the current counters without locking: the file is
// replaced atomically, so any read observes a complete snapshot. An
// absent or empty file reads as all-zero counters.
func (f *File) Load() (Counters, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Counters{}, nil
		}
		return Counters{}, fmt.Errorf("reading stats file: %w", err)
	}
	if len(raw) == 0 {
		return Counters{}, nil
	}

	var c Counters
	if err := codec.Unmarshal(raw, &c); err != nil {
		return Counters{}, fmt.Errorf("decoding stats file %s: %w", f.path, err)
	}
	return c, nil
}

// Apply folds delta into the on-disk counters. The read-add-rewrite
// runs under the sidecar lock, so concurrent updates from parallel
// compilations never lose increments. A corrupt counters file aborts
// the update; [File.Zero] repairs it.
func (f *File) Apply(delta Counters) error {
	release, err := f.lock()
	if err != nil {
		return err
	}
	defer release()

	current, err := f.Load()
	if err != nil {
		return err
	}
	current.Add(delta)
	return f.write(current)
}

// Zero resets all counters. Unlike [File.Apply] it never reads the
// existing file, so it also recovers from a corrupt one.
func (f *File) Zero() error {
	release, err := f.lock()
	if err != nil {
		return err
	}
	defer release()

	return f.write(Counters{})
}

// lock acquires the sidecar lock and returns its release function.
func (f *File) lock() (func(), error) {
	lockFile, err := os.OpenFile(f.path+".lock", os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening stats lock: %w", err)
	}
	if err := lockfile.Exclusive(lockFile); err != nil {
		lockFile.Close()
		return nil, err
	}
	return func() {
		lockfile.Release(lockFile)
		lockFile.Close()
	}, nil
}

// write publishes counters via temp file and rename.
func (f *File) write(c Counters) error {
	data, err := codec.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}

	tmpFile, err := os.CreateTemp(f.tempDir, "stats-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary stats file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("replacing %s: %w", f.path, err)
	}
	success = true
	return nil
}
