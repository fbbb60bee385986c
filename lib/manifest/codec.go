// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bureau-foundation/buildcache/lib/fingerprint"
)

// manifestMagic opens every non-empty manifest file. A wire format
// constant: changing it breaks compatibility with existing caches.
var manifestMagic = [4]byte{'B', 'c', 'M', 'f'}

// FormatVersion is the manifest wire format generation this code reads
// and writes. Decode rejects any other version.
const FormatVersion = 1

// Decode errors. Every decode failure matches [ErrCorruptManifest]
// under errors.Is; the magic and version cases additionally match
// their specific sentinel so callers can distinguish "foreign file"
// and "other cache generation" from damage.
var (
	ErrCorruptManifest    = errors.New("corrupt manifest")
	ErrBadMagic           = fmt.Errorf("%w: bad magic", ErrCorruptManifest)
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported version", ErrCorruptManifest)
)

// Decode reads the binary manifest format from r. A stream that ends
// before the first byte is a valid empty manifest (a freshly created
// manifest file is zero-length). Any other irregularity — short read,
// unterminated path, table reference out of range, foreign magic,
// unknown version — fails with an error matching [ErrCorruptManifest],
// and no partial manifest is returned.
func Decode(r io.Reader) (*Manifest, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		if err == io.EOF {
			// Zero-length file: a manifest with no recorded results.
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("reading manifest magic: %w: %w", ErrCorruptManifest, err)
	}
	if magic != manifestMagic {
		return nil, fmt.Errorf("%w 0x%x (not a manifest file)", ErrBadMagic, magic)
	}

	version, err := readUint16(br)
	if err != nil {
		return nil, fmt.Errorf("reading manifest version: %w", err)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("%w %d (this code supports version %d)", ErrUnsupportedVersion, version, FormatVersion)
	}

	m := &Manifest{}

	pathCount, err := readUint16(br)
	if err != nil {
		return nil, fmt.Errorf("reading path count: %w", err)
	}
	m.Paths = make([]string, pathCount)
	for i := range m.Paths {
		path, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("reading path %d: %w", i, err)
		}
		m.Paths[i] = path
	}

	infoCount, err := readUint16(br)
	if err != nil {
		return nil, fmt.Errorf("reading file info count: %w", err)
	}
	m.FileInfos = make([]FileInfo, infoCount)
	for i := range m.FileInfos {
		pathIndex, err := readUint16(br)
		if err != nil {
			return nil, fmt.Errorf("reading file info %d path index: %w", i, err)
		}
		if int(pathIndex) >= len(m.Paths) {
			return nil, fmt.Errorf("%w: file info %d references path %d of %d", ErrCorruptManifest, i, pathIndex, len(m.Paths))
		}
		f, err := readFingerprint(br)
		if err != nil {
			return nil, fmt.Errorf("reading file info %d fingerprint: %w", i, err)
		}
		m.FileInfos[i] = FileInfo{PathIndex: pathIndex, Fingerprint: f}
	}

	objectCount, err := readUint16(br)
	if err != nil {
		return nil, fmt.Errorf("reading object count: %w", err)
	}
	m.Objects = make([]ObjectEntry, objectCount)
	for i := range m.Objects {
		refCount, err := readUint16(br)
		if err != nil {
			return nil, fmt.Errorf("reading object %d reference count: %w", i, err)
		}
		refs := make([]uint16, refCount)
		for j := range refs {
			ref, err := readUint16(br)
			if err != nil {
				return nil, fmt.Errorf("reading object %d reference %d: %w", i, j, err)
			}
			if int(ref) >= len(m.FileInfos) {
				return nil, fmt.Errorf("%w: object %d references file info %d of %d", ErrCorruptManifest, i, ref, len(m.FileInfos))
			}
			refs[j] = ref
		}
		f, err := readFingerprint(br)
		if err != nil {
			return nil, fmt.Errorf("reading object %d fingerprint: %w", i, err)
		}
		m.Objects[i] = ObjectEntry{FileInfoIndexes: refs, Object: f}
	}

	return m, nil
}

// Encode writes the binary manifest format to w. Table sizes and
// references are validated before anything relies on them, so a
// hand-assembled manifest that violates the table invariants fails
// here rather than producing an undecodable file.
func (m *Manifest) Encode(w io.Writer) error {
	if len(m.Paths) > maxTableEntries {
		return fmt.Errorf("path table has %d entries, exceeding %d", len(m.Paths), maxTableEntries)
	}
	if len(m.FileInfos) > maxTableEntries {
		return fmt.Errorf("file info table has %d entries, exceeding %d", len(m.FileInfos), maxTableEntries)
	}
	if len(m.Objects) > maxTableEntries {
		return fmt.Errorf("object table has %d entries, exceeding %d", len(m.Objects), maxTableEntries)
	}

	bw := bufio.NewWriter(w)

	if _, err := bw.Write(manifestMagic[:]); err != nil {
		return fmt.Errorf("writing manifest magic: %w", err)
	}
	if err := writeUint16(bw, FormatVersion); err != nil {
		return fmt.Errorf("writing manifest version: %w", err)
	}

	if err := writeUint16(bw, uint16(len(m.Paths))); err != nil {
		return fmt.Errorf("writing path count: %w", err)
	}
	for i, path := range m.Paths {
		if err := writeString(bw, path); err != nil {
			return fmt.Errorf("writing path %d: %w", i, err)
		}
	}

	if err := writeUint16(bw, uint16(len(m.FileInfos))); err != nil {
		return fmt.Errorf("writing file info count: %w", err)
	}
	for i, info := range m.FileInfos {
		if int(info.PathIndex) >= len(m.Paths) {
			return fmt.Errorf("file info %d references path %d of %d", i, info.PathIndex, len(m.Paths))
		}
		if err := writeUint16(bw, info.PathIndex); err != nil {
			return fmt.Errorf("writing file info %d path index: %w", i, err)
		}
		if err := writeFingerprint(bw, info.Fingerprint); err != nil {
			return fmt.Errorf("writing file info %d fingerprint: %w", i, err)
		}
	}

	if err := writeUint16(bw, uint16(len(m.Objects))); err != nil {
		return fmt.Errorf("writing object count: %w", err)
	}
	for i, object := range m.Objects {
		if len(object.FileInfoIndexes) > maxTableEntries {
			return fmt.Errorf("object %d has %d references, exceeding %d", i, len(object.FileInfoIndexes), maxTableEntries)
		}
		if err := writeUint16(bw, uint16(len(object.FileInfoIndexes))); err != nil {
			return fmt.Errorf("writing object %d reference count: %w", i, err)
		}
		for j, ref := range object.FileInfoIndexes {
			if int(ref) >= len(m.FileInfos) {
				return fmt.Errorf("object %d references file info %d of %d", i, ref, len(m.FileInfos))
			}
			if err := writeUint16(bw, ref); err != nil {
				return fmt.Errorf("writing object %d reference %d: %w", i, j, err)
			}
		}
		if err := writeFingerprint(bw, object.Object); err != nil {
			return fmt.Errorf("writing object %d fingerprint: %w", i, err)
		}
	}

	return bw.Flush()
}

// The field readers wrap every failure in ErrCorruptManifest: at this
// layer a short read and damaged data are indistinguishable, and both
// must abort the decode.

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCorruptManifest, err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCorruptManifest, err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readFingerprint(r io.Reader) (fingerprint.Fingerprint, error) {
	var f fingerprint.Fingerprint
	if _, err := io.ReadFull(r, f.Digest[:]); err != nil {
		return fingerprint.Fingerprint{}, fmt.Errorf("%w: %w", ErrCorruptManifest, err)
	}
	size, err := readUint32(r)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}
	f.Size = size
	return f, nil
}

// readString reads a NUL-terminated path. The window is 1024 bytes
// including the terminator; a path that runs past it is damage, not
// a long path.
func readString(r *bufio.Reader) (string, error) {
	var buf [MaxPathLength + 1]byte
	for i := range buf {
		c, err := r.ReadByte()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrCorruptManifest, err)
		}
		if c == 0 {
			return string(buf[:i]), nil
		}
		buf[i] = c
	}
	return "", fmt.Errorf("%w: path exceeds %d bytes without a terminator", ErrCorruptManifest, MaxPathLength)
}

func writeUint16(w *bufio.Writer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint32(w *bufio.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeFingerprint(w *bufio.Writer, f fingerprint.Fingerprint) error {
	if _, err := w.Write(f.Digest[:]); err != nil {
		return err
	}
	return writeUint32(w, f.Size)
}

func writeString(w *bufio.Writer, s string) error {
	if len(s) > MaxPathLength {
		return fmt.Errorf("path is %d bytes, exceeding the %d byte limit", len(s), MaxPathLength)
	}
	if strings.IndexByte(s, 0) >= 0 {
		return fmt.Errorf("path %q contains a NUL byte", s)
	}
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	return w.WriteByte(0)
}
