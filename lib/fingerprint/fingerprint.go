// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fingerprint

import (
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
)

// DigestSize is the number of digest bytes carried in a fingerprint:
// a BLAKE3 hash truncated to its first 16 bytes. This is a wire format
// constant — changing it breaks manifest compatibility.
const DigestSize = 16

// MaxFileSize is the largest content length a fingerprint can
// represent. The manifest wire format stores sizes as 32-bit values.
const MaxFileSize = math.MaxUint32

// Fingerprint identifies file content by truncated BLAKE3 digest and
// length. Two fingerprints are equal exactly when both fields match,
// so values can be compared with == and used as map keys.
type Fingerprint struct {
	Digest [DigestSize]byte
	Size   uint32
}

// HashReader fingerprints everything readable from r, streaming the
// content through the hash function. Returns an error if the content
// exceeds [MaxFileSize].
func HashReader(r io.Reader) (Fingerprint, error) {
	hasher := blake3.New()
	size, err := io.Copy(hasher, r)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("hashing content: %w", err)
	}
	if size > MaxFileSize {
		return Fingerprint{}, fmt.Errorf("content is %d bytes, exceeding the %d byte fingerprint limit", size, uint64(MaxFileSize))
	}

	var f Fingerprint
	copy(f.Digest[:], hasher.Sum(nil))
	f.Size = uint32(size)
	return f, nil
}

// HashFile fingerprints the file at path. The file is streamed through
// the hash function, so memory usage is constant regardless of size.
func HashFile(path string) (Fingerprint, error) {
	file, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	f, err := HashReader(file)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return f, nil
}

// HashBytes fingerprints an in-memory buffer. Panics if the buffer
// exceeds [MaxFileSize]; callers holding multi-gigabyte buffers should
// stream through [HashReader] instead.
func HashBytes(data []byte) Fingerprint {
	if uint64(len(data)) > MaxFileSize {
		panic(fmt.Sprintf("fingerprint: buffer is %d bytes, exceeding the %d byte fingerprint limit", len(data), uint64(MaxFileSize)))
	}
	sum := blake3.Sum256(data)

	var f Fingerprint
	copy(f.Digest[:], sum[:DigestSize])
	f.Size = uint32(len(data))
	return f
}

// Format returns the canonical string form "<hex digest>-<size>",
// e.g. "d41d8cd98f00b204e9800998ecf8427e-1847". This is the form used
// to name stored object files and in CLI output.
func Format(f Fingerprint) string {
	return hex.EncodeToString(f.Digest[:]) + "-" + strconv.FormatUint(uint64(f.Size), 10)
}

// Parse parses the canonical "<hex digest>-<size>" form produced by
// [Format], validating the digest length, hex encoding, and size range.
func Parse(s string) (Fingerprint, error) {
	separator := strings.LastIndexByte(s, '-')
	if separator < 0 {
		return Fingerprint{}, fmt.Errorf("fingerprint %q has no size separator", s)
	}

	decoded, err := hex.DecodeString(s[:separator])
	if err != nil {
		return Fingerprint{}, fmt.Errorf("parsing fingerprint digest: %w", err)
	}
	if len(decoded) != DigestSize {
		return Fingerprint{}, fmt.Errorf("fingerprint digest is %d bytes, want %d", len(decoded), DigestSize)
	}

	size, err := strconv.ParseUint(s[separator+1:], 10, 32)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("parsing fingerprint size: %w", err)
	}

	var f Fingerprint
	copy(f.Digest[:], decoded)
	f.Size = uint32(size)
	return f, nil
}
