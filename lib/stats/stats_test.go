// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stats

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func newTestFile(t *testing.T) *File {
	t.Helper()
	root := t.TempDir()
	tempDir := filepath.Join(root, "tmp")
	if err := os.Mkdir(tempDir, 0o755); err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	return NewFile(filepath.Join(root, "stats.cbor"), tempDir)
}

func TestLoadAbsentFile(t *testing.T) {
	f := newTestFile(t)
	c, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c != (Counters{}) {
		t.Errorf("absent file loaded as %+v, want zeros", c)
	}
}

func TestApplyAccumulates(t *testing.T) {
	f := newTestFile(t)

	if err := f.Apply(Counters{Hits: 2, StoredBytes: 100}); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	if err := f.Apply(Counters{Hits: 1, Misses: 3, Puts: 1, StoredBytes: 50}); err != nil {
		t.Fatalf("second Apply: %v", err)
	}

	c, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Counters{Hits: 3, Misses: 3, Puts: 1, StoredBytes: 150}
	if c != want {
		t.Errorf("counters = %+v, want %+v", c, want)
	}
}

func TestZeroResets(t *testing.T) {
	f := newTestFile(t)
	if err := f.Apply(Counters{Hits: 9, Errors: 1}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := f.Zero(); err != nil {
		t.Fatalf("Zero: %v", err)
	}

	c, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c != (Counters{}) {
		t.Errorf("counters after Zero = %+v, want zeros", c)
	}
}

func TestCorruptFileFailsLoadAndApply(t *testing.T) {
	f := newTestFile(t)
	if err := os.WriteFile(f.path, []byte("\xff\xfe not cbor"), 0o644); err != nil {
		t.Fatalf("writing corrupt stats: %v", err)
	}

	if _, err := f.Load(); err == nil {
		t.Error("Load accepted a corrupt stats file")
	}
	if err := f.Apply(Counters{Hits: 1}); err == nil {
		t.Error("Apply accepted a corrupt stats file")
	}
}

func TestZeroRepairsCorruptFile(t *testing.T) {
	f := newTestFile(t)
	if err := os.WriteFile(f.path, []byte("damaged"), 0o644); err != nil {
		t.Fatalf("writing corrupt stats: %v", err)
	}

	if err := f.Zero(); err != nil {
		t.Fatalf("Zero on corrupt file: %v", err)
	}
	c, err := f.Load()
	if err != nil {
		t.Fatalf("Load after repair: %v", err)
	}
	if c != (Counters{}) {
		t.Errorf("counters = %+v, want zeros", c)
	}
}

func TestConcurrentApplies(t *testing.T) {
	f := newTestFile(t)

	const workers = 8
	const perWorker = 25
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if err := f.Apply(Counters{Hits: 1}); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Apply: %v", err)
	}

	c, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Hits != workers*perWorker {
		t.Errorf("lost updates: %d hits recorded, want %d", c.Hits, workers*perWorker)
	}
}

func TestHitRate(t *testing.T) {
	if rate := (Counters{}).HitRate(); rate != 0 {
		t.Errorf("hit rate with no lookups = %v, want 0", rate)
	}
	if rate := (Counters{Hits: 3, Misses: 1}).HitRate(); rate != 0.75 {
		t.Errorf("hit rate = %v, want 0.75", rate)
	}
}
