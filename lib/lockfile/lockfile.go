// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package lockfile provides advisory file locking over flock(2).
//
// The cache serializes access to shared on-disk state (manifests, the
// statistics file) with kernel advisory locks: readers take a shared
// lock, writers take an exclusive lock for their whole
// read-modify-write span. Locks attach to the open file description,
// so they are released automatically when the file is closed and never
// survive a crashed process.
package lockfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Shared acquires a shared (read) lock on file, blocking until the
// lock is available. Multiple shared holders may coexist; a shared
// lock excludes exclusive holders.
func Shared(file *os.File) error {
	if err := flock(file, unix.LOCK_SH); err != nil {
		return fmt.Errorf("read-locking %s: %w", file.Name(), err)
	}
	return nil
}

// Exclusive acquires an exclusive (write) lock on file, blocking until
// the lock is available. An exclusive lock excludes all other holders.
func Exclusive(file *os.File) error {
	if err := flock(file, unix.LOCK_EX); err != nil {
		return fmt.Errorf("write-locking %s: %w", file.Name(), err)
	}
	return nil
}

// TryShared attempts a shared lock without blocking. Returns false
// with a nil error when the lock is held exclusively elsewhere.
func TryShared(file *os.File) (bool, error) {
	return tryFlock(file, unix.LOCK_SH)
}

// TryExclusive attempts an exclusive lock without blocking. Returns
// false with a nil error when any other holder exists.
func TryExclusive(file *os.File) (bool, error) {
	return tryFlock(file, unix.LOCK_EX)
}

// Release drops the lock held on file. Closing the file has the same
// effect; Release exists for holders that keep the file open.
func Release(file *os.File) error {
	if err := flock(file, unix.LOCK_UN); err != nil {
		return fmt.Errorf("unlocking %s: %w", file.Name(), err)
	}
	return nil
}

// flock invokes flock(2), retrying when the blocking wait is
// interrupted by a signal.
func flock(file *os.File, how int) error {
	for {
		err := unix.Flock(int(file.Fd()), how)
		if err != unix.EINTR {
			return err
		}
	}
}

func tryFlock(file *os.File, how int) (bool, error) {
	err := flock(file, how|unix.LOCK_NB)
	if err == unix.EWOULDBLOCK {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("locking %s: %w", file.Name(), err)
	}
	return true, nil
}
