// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sweep

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Placeholder is replaced by the sweep value in command arguments.
const Placeholder = "{n}"

// A Command is an invocation template for the external benchmark.
type Command struct {
	Path string

	// Args are the arguments. Every occurrence of Placeholder is
	// replaced by the sweep value. If no argument contains it, the
	// value is passed as the first argument.
	Args []string
}

// Argv returns the argument list for sweep value v, not including
// the program path.
func (c Command) Argv(v int) []string {
	n := strconv.Itoa(v)
	argv := make([]string, 0, len(c.Args)+1)
	found := false
	for _, a := range c.Args {
		if strings.Contains(a, Placeholder) {
			found = true
			a = strings.ReplaceAll(a, Placeholder, n)
		}
		argv = append(argv, a)
	}
	if !found {
		argv = append([]string{n}, argv...)
	}
	return argv
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// MassifCommand returns the template that runs exe under valgrind's
// massif tool, writing its profile to outFile.
func MassifCommand(exe, outFile string) Command {
	return Command{
		Path: "valgrind",
		Args: []string{
			"--tool=massif",
			"--stacks=yes",
			"--time-unit=ms",
			"--massif-out-file=" + outFile,
			exe,
			Placeholder,
		},
	}
}

// DefaultArtifact returns the timing artifact an elapsed-time
// benchmark executable writes: the last '_'-separated part of its
// name followed by "_time_taken" and ext. For example,
// "build/bench_normal" writes "normal_time_taken.txt".
func DefaultArtifact(exe, ext string) string {
	base := filepath.Base(exe)
	if i := strings.LastIndex(base, "_"); i >= 0 {
		base = base[i+1:]
	}
	return base + "_time_taken" + ext
}
