// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lockfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// openPair opens the same lock file twice so the two handles have
// independent file descriptions and therefore independent flock state.
func openPair(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.lock")

	first, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	t.Cleanup(func() { first.Close() })

	second, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	t.Cleanup(func() { second.Close() })

	return first, second
}

func TestSharedLocksCoexist(t *testing.T) {
	first, second := openPair(t)

	if err := Shared(first); err != nil {
		t.Fatalf("first shared lock: %v", err)
	}
	acquired, err := TryShared(second)
	if err != nil {
		t.Fatalf("second shared lock: %v", err)
	}
	if !acquired {
		t.Error("second shared lock refused while only a shared lock is held")
	}
}

func TestExclusiveExcludesShared(t *testing.T) {
	first, second := openPair(t)

	if err := Exclusive(first); err != nil {
		t.Fatalf("exclusive lock: %v", err)
	}

	acquired, err := TryShared(second)
	if err != nil {
		t.Fatalf("TryShared: %v", err)
	}
	if acquired {
		t.Fatal("shared lock granted while an exclusive lock is held")
	}

	if err := Release(first); err != nil {
		t.Fatalf("release: %v", err)
	}
	acquired, err = TryShared(second)
	if err != nil {
		t.Fatalf("TryShared after release: %v", err)
	}
	if !acquired {
		t.Error("shared lock refused after the exclusive lock was released")
	}
}

func TestSharedExcludesExclusive(t *testing.T) {
	first, second := openPair(t)

	if err := Shared(first); err != nil {
		t.Fatalf("shared lock: %v", err)
	}
	acquired, err := TryExclusive(second)
	if err != nil {
		t.Fatalf("TryExclusive: %v", err)
	}
	if acquired {
		t.Error("exclusive lock granted while a shared lock is held")
	}
}

func TestExclusiveBlocksUntilRelease(t *testing.T) {
	first, second := openPair(t)

	if err := Exclusive(first); err != nil {
		t.Fatalf("exclusive lock: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- Shared(second)
	}()

	select {
	case <-done:
		t.Fatal("blocking shared lock returned while the exclusive lock was still held")
	case <-time.After(50 * time.Millisecond):
	}

	if err := Release(first); err != nil {
		t.Fatalf("release: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("blocking shared lock: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("blocking shared lock did not complete after release")
	}
}

func TestCloseReleasesLock(t *testing.T) {
	first, second := openPair(t)

	if err := Exclusive(first); err != nil {
		t.Fatalf("exclusive lock: %v", err)
	}
	first.Close()

	acquired, err := TryExclusive(second)
	if err != nil {
		t.Fatalf("TryExclusive: %v", err)
	}
	if !acquired {
		t.Error("lock survived closing its file")
	}
}
