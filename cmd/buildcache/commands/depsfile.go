// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import "strings"

// parseDepsFile extracts input paths from a dependency file.
//
// The format is the Makefile fragment compilers emit for -MD/-MMD:
// backslash line continuations are joined, rule targets (tokens ending
// in ":", including the phony targets -MP appends) are dropped, and
// backslash-escaped spaces within a path are unescaped. A file with no
// rule syntax degrades to a plain whitespace-separated path list, so
// hand-written lists work too.
func parseDepsFile(data []byte) []string {
	text := strings.ReplaceAll(string(data), "\\\r\n", " ")
	text = strings.ReplaceAll(text, "\\\n", " ")

	var paths []string
	var current strings.Builder
	flush := func() {
		token := current.String()
		current.Reset()
		if token == "" {
			return
		}
		if strings.HasSuffix(token, ":") {
			// A rule target (including -MP phony targets), not an input.
			return
		}
		paths = append(paths, token)
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\\' && i+1 < len(text) && text[i+1] == ' ':
			// Escaped space inside a path.
			current.WriteByte(' ')
			i++
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()
		default:
			current.WriteByte(c)
		}
	}
	flush()

	return paths
}
