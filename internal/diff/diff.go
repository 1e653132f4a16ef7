// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diff compares golden outputs in tests.
package diff

import (
	"fmt"
	"strings"
)

// Diff returns a line-by-line description of the differences between
// s1 and s2. Lines only in s1 are prefixed with "-", lines only in s2
// with "+", and shared lines with " ". The result is empty if and only
// if s1 == s2.
func Diff(s1, s2 string) string {
	if s1 == s2 {
		return ""
	}
	a, b := splitLines(s1), splitLines(s2)

	// lcs[i][j] is the length of the longest common subsequence of
	// a[i:] and b[j:].
	lcs := make([][]int, len(a)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	var sb strings.Builder
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case i < len(a) && j < len(b) && a[i] == b[j]:
			fmt.Fprintf(&sb, " %s\n", a[i])
			i, j = i+1, j+1
		case j == len(b) || (i < len(a) && lcs[i+1][j] >= lcs[i][j+1]):
			fmt.Fprintf(&sb, "-%s\n", a[i])
			i++
		default:
			fmt.Fprintf(&sb, "+%s\n", b[j])
			j++
		}
	}
	if sb.Len() == 0 || strings.HasSuffix(s1, "\n") != strings.HasSuffix(s2, "\n") {
		sb.WriteString("(trailing newline differs)\n")
	}
	return sb.String()
}

// splitLines splits s into lines without their terminating newlines.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
