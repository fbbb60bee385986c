// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPutWithDepsFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeTestConfig(t, tmpDir)
	logger := testLogger()

	source := writeFile(t, tmpDir, "main.c", "int main(void) { return 0; }\n")
	header := writeFile(t, tmpDir, "util.h", "#pragma once\n")
	object := writeFile(t, tmpDir, "main.o", "object from deps build")
	depsFile := writeFile(t, tmpDir, "main.d",
		"main.o: "+source+" \\\n "+header+"\n")
	key := "gcc -MD -c main.c"

	if err := runPut(key, configPath, object, nil, depsFile, logger); err != nil {
		t.Fatalf("put with deps file: %v", err)
	}
	if err := runGet(key, configPath, "", logger); err != nil {
		t.Fatalf("get after deps-file put: %v", err)
	}

	// A dependency named only in the deps file still invalidates.
	if err := os.WriteFile(header, []byte("#pragma once\n#define X\n"), 0o644); err != nil {
		t.Fatalf("editing header: %v", err)
	}
	expectExitCode(t, runGet(key, configPath, "", logger), 1)
}

func TestPutReadOnly(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeTestConfig(t, tmpDir, "read_only: true")
	logger := testLogger()

	include := writeFile(t, tmpDir, "util.h", "content\n")
	object := writeFile(t, tmpDir, "main.o", "object bytes")
	key := "gcc -c main.c"

	// Read-only put succeeds without storing anything.
	if err := runPut(key, configPath, object, []string{include}, "", logger); err != nil {
		t.Fatalf("read-only put: %v", err)
	}
	expectExitCode(t, runGet(key, configPath, "", logger), 1)

	// Nothing was written under the cache's manifest or object trees.
	for _, subdir := range []string{"manifests", "objects"} {
		root := filepath.Join(tmpDir, "cache", subdir)
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				t.Errorf("read-only put left %s behind", path)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("walking %s: %v", root, err)
		}
	}
}

func TestPutUnreadableIncludeFails(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeTestConfig(t, tmpDir)
	logger := testLogger()

	object := writeFile(t, tmpDir, "main.o", "object bytes")
	missing := filepath.Join(tmpDir, "deleted.h")

	err := runPut("gcc -c main.c", configPath, object, []string{missing}, "", logger)
	if err == nil {
		t.Fatal("expected error for unreadable include, got nil")
	}

	// The failed put recorded an error and stored nothing retrievable.
	env, envErr := openEnvironment(configPath, logger)
	if envErr != nil {
		t.Fatalf("openEnvironment: %v", envErr)
	}
	counters, statsErr := env.stats.Load()
	if statsErr != nil {
		t.Fatalf("loading stats: %v", statsErr)
	}
	if counters.Errors != 1 {
		t.Errorf("errors = %d, want 1", counters.Errors)
	}
	expectExitCode(t, runGet("gcc -c main.c", configPath, "", logger), 1)
}

func TestPutSameObjectTwice(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeTestConfig(t, tmpDir)
	logger := testLogger()

	include := writeFile(t, tmpDir, "util.h", "content\n")
	object := writeFile(t, tmpDir, "main.o", "identical object bytes")

	// Two keys producing the same object share one stored file.
	if err := runPut("gcc -c a.c", configPath, object, []string{include}, "", logger); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := runPut("gcc -c b.c", configPath, object, []string{include}, "", logger); err != nil {
		t.Fatalf("second put: %v", err)
	}

	objectCount := 0
	root := filepath.Join(tmpDir, "cache", "objects")
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			objectCount++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walking objects: %v", err)
	}
	if objectCount != 1 {
		t.Errorf("object files = %d, want 1 (content-addressed dedup)", objectCount)
	}

	if err := runGet("gcc -c a.c", configPath, "", logger); err != nil {
		t.Fatalf("get first key: %v", err)
	}
	if err := runGet("gcc -c b.c", configPath, "", logger); err != nil {
		t.Fatalf("get second key: %v", err)
	}
}
