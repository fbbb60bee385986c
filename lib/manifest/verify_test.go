// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/buildcache/lib/fingerprint"
)

// countingHasher serves fingerprints from a fixed map and counts how
// often each path is hashed. Paths absent from the map fail to hash,
// standing in for removed or unreadable include files.
type countingHasher struct {
	files map[string]fingerprint.Fingerprint
	calls map[string]int
}

func newCountingHasher() *countingHasher {
	return &countingHasher{
		files: make(map[string]fingerprint.Fingerprint),
		calls: make(map[string]int),
	}
}

func (h *countingHasher) HashFile(path string) (fingerprint.Fingerprint, error) {
	h.calls[path]++
	f, ok := h.files[path]
	if !ok {
		return fingerprint.Fingerprint{}, fmt.Errorf("opening %s for hashing: no such file", path)
	}
	return f, nil
}

// writeManifestFile encodes m into a manifest file under a fresh
// temp directory and returns its path.
func writeManifestFile(t *testing.T, m *Manifest) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.manifest")
	if err := os.WriteFile(path, encodeToBytes(t, m), 0o644); err != nil {
		t.Fatalf("writing manifest file: %v", err)
	}
	return path
}

func newTestStore(t *testing.T, hasher Hasher) *Store {
	t.Helper()
	store, err := NewStore(StoreConfig{TempDir: t.TempDir(), Hasher: hasher})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	return store
}

func TestGetReturnsNewestValidEntry(t *testing.T) {
	hasher := newCountingHasher()
	headerFingerprint := fingerprint.HashBytes([]byte("header v1"))
	hasher.files["/include/h.h"] = headerFingerprint

	m := &Manifest{}
	included := map[string]fingerprint.Fingerprint{"/include/h.h": headerFingerprint}
	olderObject := fingerprint.HashBytes([]byte("older object"))
	newerObject := fingerprint.HashBytes([]byte("newer object"))
	if err := m.AppendObject(olderObject, included); err != nil {
		t.Fatalf("append older: %v", err)
	}
	if err := m.AppendObject(newerObject, included); err != nil {
		t.Fatalf("append newer: %v", err)
	}

	store := newTestStore(t, hasher)
	got, ok, err := store.Get(writeManifestFile(t, m))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit")
	}
	if got != newerObject {
		t.Errorf("Get returned %s, want the newest entry %s", fingerprint.Format(got), fingerprint.Format(newerObject))
	}
}

func TestGetFallsBackToOlderEntry(t *testing.T) {
	hasher := newCountingHasher()
	currentContent := fingerprint.HashBytes([]byte("header as on disk"))
	staleContent := fingerprint.HashBytes([]byte("header as it was later"))
	hasher.files["/include/h.h"] = currentContent

	m := &Manifest{}
	olderObject := fingerprint.HashBytes([]byte("older object"))
	newerObject := fingerprint.HashBytes([]byte("newer object"))
	if err := m.AppendObject(olderObject, map[string]fingerprint.Fingerprint{"/include/h.h": currentContent}); err != nil {
		t.Fatalf("append older: %v", err)
	}
	if err := m.AppendObject(newerObject, map[string]fingerprint.Fingerprint{"/include/h.h": staleContent}); err != nil {
		t.Fatalf("append newer: %v", err)
	}

	store := newTestStore(t, hasher)
	got, ok, err := store.Get(writeManifestFile(t, m))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit on the older entry")
	}
	if got != olderObject {
		t.Errorf("Get returned %s, want the older entry %s", fingerprint.Format(got), fingerprint.Format(olderObject))
	}
}

func TestGetHashesEachPathOnce(t *testing.T) {
	hasher := newCountingHasher()
	current := fingerprint.HashBytes([]byte("current"))
	recorded := fingerprint.HashBytes([]byte("recorded long ago"))
	hasher.files["/include/shared.h"] = current

	// Several entries all referencing the same path with observations
	// that no longer hold, so the scan visits every entry.
	m := &Manifest{}
	for i := 0; i < 4; i++ {
		err := m.AppendObject(fingerprint.HashBytes([]byte{byte(i)}), map[string]fingerprint.Fingerprint{
			"/include/shared.h": recorded,
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	store := newTestStore(t, hasher)
	_, ok, err := store.Get(writeManifestFile(t, m))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected a miss")
	}
	if hasher.calls["/include/shared.h"] != 1 {
		t.Errorf("path was hashed %d times in one lookup, want 1", hasher.calls["/include/shared.h"])
	}
}

func TestGetRetriesFailedHashes(t *testing.T) {
	hasher := newCountingHasher()
	// "/include/gone.h" is absent from the hasher: every hash fails.
	recorded := fingerprint.HashBytes([]byte("recorded"))

	m := &Manifest{}
	for i := 0; i < 2; i++ {
		err := m.AppendObject(fingerprint.HashBytes([]byte{byte(i)}), map[string]fingerprint.Fingerprint{
			"/include/gone.h": recorded,
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	store := newTestStore(t, hasher)
	_, ok, err := store.Get(writeManifestFile(t, m))
	if err != nil {
		t.Fatalf("a hash failure must not fail the lookup: %v", err)
	}
	if ok {
		t.Fatal("expected a miss")
	}
	// Failures are not memoized: each entry retries the hash.
	if hasher.calls["/include/gone.h"] != 2 {
		t.Errorf("failed path was hashed %d times, want 2 (failures must not be cached)", hasher.calls["/include/gone.h"])
	}
}

func TestGetSkipsEntryWithUnhashableFile(t *testing.T) {
	hasher := newCountingHasher()
	okFingerprint := fingerprint.HashBytes([]byte("still here"))
	hasher.files["/include/ok.h"] = okFingerprint

	m := &Manifest{}
	olderObject := fingerprint.HashBytes([]byte("older object"))
	if err := m.AppendObject(olderObject, map[string]fingerprint.Fingerprint{"/include/ok.h": okFingerprint}); err != nil {
		t.Fatalf("append older: %v", err)
	}
	newerObject := fingerprint.HashBytes([]byte("newer object"))
	if err := m.AppendObject(newerObject, map[string]fingerprint.Fingerprint{"/include/gone.h": okFingerprint}); err != nil {
		t.Fatalf("append newer: %v", err)
	}

	store := newTestStore(t, hasher)
	got, ok, err := store.Get(writeManifestFile(t, m))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("the older entry should still match")
	}
	if got != olderObject {
		t.Errorf("Get returned %s, want %s", fingerprint.Format(got), fingerprint.Format(olderObject))
	}
}

func TestGetStopsAtFirstMismatch(t *testing.T) {
	hasher := newCountingHasher()
	hasher.files["/a.h"] = fingerprint.HashBytes([]byte("changed"))
	hasher.files["/b.h"] = fingerprint.HashBytes([]byte("b"))

	m := &Manifest{}
	err := m.AppendObject(fingerprint.HashBytes([]byte("obj")), map[string]fingerprint.Fingerprint{
		"/a.h": fingerprint.HashBytes([]byte("original")),
		"/b.h": fingerprint.HashBytes([]byte("b")),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	store := newTestStore(t, hasher)
	_, ok, err := store.Get(writeManifestFile(t, m))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected a miss")
	}
	// References are checked in order; the mismatch on /a.h must stop
	// the entry before /b.h is ever hashed.
	if hasher.calls["/b.h"] != 0 {
		t.Errorf("/b.h was hashed %d times after an earlier mismatch, want 0", hasher.calls["/b.h"])
	}
}

func TestGetMissesOnEmptyManifest(t *testing.T) {
	store := newTestStore(t, newCountingHasher())
	_, ok, err := store.Get(writeManifestFile(t, &Manifest{}))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("an empty manifest cannot hit")
	}
}
