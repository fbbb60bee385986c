// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bureau-foundation/buildcache/lib/fingerprint"
)

const (
	// MaxPathLength is the longest encodable include path in bytes,
	// excluding the NUL terminator. The on-disk string window is 1024
	// bytes including the terminator.
	MaxPathLength = 1023

	// maxTableEntries bounds each manifest table. Table references are
	// 16-bit on disk, so no table can exceed 65535 entries.
	maxTableEntries = math.MaxUint16
)

// FileInfo records one observation of an include file: which path (as
// an index into the manifest's path table) held which content. Values
// are comparable, so identical observations intern to a single table
// entry.
type FileInfo struct {
	PathIndex   uint16
	Fingerprint fingerprint.Fingerprint
}

// ObjectEntry records one stored compilation result: the fingerprint
// naming the object in the object store, and the file info table
// entries that must all still hold for the result to be reusable.
type ObjectEntry struct {
	FileInfoIndexes []uint16
	Object          fingerprint.Fingerprint
}

// Manifest is the in-memory form of one manifest file: three tables,
// with file infos referencing paths by index and object entries
// referencing file infos by index. Later object entries are newer;
// [Store.Get] scans them newest-first.
type Manifest struct {
	Paths     []string
	FileInfos []FileInfo
	Objects   []ObjectEntry
}

// AppendObject records a compilation result and the include files it
// was built from. Paths and observations the manifest already holds
// are referenced by their existing index; new ones are appended.
// Include files are processed in sorted path order, so the same inputs
// always grow the tables identically and encode to identical bytes.
//
// The new entry lands at the end of the object table, making it the
// newest — the first entry a subsequent [Store.Get] considers.
//
// On error the object table is untouched. The path and file info
// tables may have grown by entries that were interned before the
// failure; they remain internally consistent.
func (m *Manifest) AppendObject(object fingerprint.Fingerprint, includedFiles map[string]fingerprint.Fingerprint) error {
	if len(m.Objects) >= maxTableEntries {
		return fmt.Errorf("object table is full (%d entries)", maxTableEntries)
	}

	paths := make([]string, 0, len(includedFiles))
	for path := range includedFiles {
		if len(path) > MaxPathLength {
			return fmt.Errorf("include path is %d bytes, exceeding the %d byte limit", len(path), MaxPathLength)
		}
		if strings.IndexByte(path, 0) >= 0 {
			return fmt.Errorf("include path %q contains a NUL byte", path)
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)

	in := newInterner(m)
	indexes := make([]uint16, 0, len(paths))
	for _, path := range paths {
		index, err := in.internFileInfo(path, includedFiles[path])
		if err != nil {
			return err
		}
		indexes = append(indexes, index)
	}

	m.Objects = append(m.Objects, ObjectEntry{FileInfoIndexes: indexes, Object: object})
	return nil
}

// interner resolves values to table indexes over one manifest,
// appending on first sight so repeated values share a single entry.
type interner struct {
	manifest    *Manifest
	pathIndexes map[string]uint16
	infoIndexes map[FileInfo]uint16
}

func newInterner(m *Manifest) *interner {
	in := &interner{
		manifest:    m,
		pathIndexes: make(map[string]uint16, len(m.Paths)),
		infoIndexes: make(map[FileInfo]uint16, len(m.FileInfos)),
	}
	for i, path := range m.Paths {
		in.pathIndexes[path] = uint16(i)
	}
	for i, info := range m.FileInfos {
		in.infoIndexes[info] = uint16(i)
	}
	return in
}

func (in *interner) internPath(path string) (uint16, error) {
	if index, ok := in.pathIndexes[path]; ok {
		return index, nil
	}
	if len(in.manifest.Paths) >= maxTableEntries {
		return 0, fmt.Errorf("path table is full (%d entries)", maxTableEntries)
	}
	index := uint16(len(in.manifest.Paths))
	in.manifest.Paths = append(in.manifest.Paths, path)
	in.pathIndexes[path] = index
	return index, nil
}

func (in *interner) internFileInfo(path string, f fingerprint.Fingerprint) (uint16, error) {
	pathIndex, err := in.internPath(path)
	if err != nil {
		return 0, err
	}
	info := FileInfo{PathIndex: pathIndex, Fingerprint: f}
	if index, ok := in.infoIndexes[info]; ok {
		return index, nil
	}
	if len(in.manifest.FileInfos) >= maxTableEntries {
		return 0, fmt.Errorf("file info table is full (%d entries)", maxTableEntries)
	}
	index := uint16(len(in.manifest.FileInfos))
	in.manifest.FileInfos = append(in.manifest.FileInfos, info)
	in.infoIndexes[info] = index
	return index, nil
}
