// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package massif reads the output files written by valgrind's massif
// heap profiler.
//
// Only the per-snapshot totals are of interest. A snapshot block
// looks like
//
//	#-----------
//	snapshot=3
//	#-----------
//	time=12
//	mem_heap_B=4096
//	mem_heap_extra_B=40
//	mem_stacks_B=1024
//	heap_tree=empty
//
// and everything from the heap_tree line up to the next snapshot
// marker is skipped.
package massif

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Attribute keys of a massif snapshot.
const (
	Time         = "time"
	HeapBytes    = "mem_heap_B"
	HeapExtra    = "mem_heap_extra_B"
	StacksBytes  = "mem_stacks_B"
	snapshotKey  = "snapshot"
	heapTreeKey  = "heap_tree"
	commentStart = "#-"
)

// A Snapshot maps attribute names to their values. A snapshot that
// had no attribute lines is empty, and every lookup on it yields 0.
type Snapshot map[string]int64

// Heap returns the heap usage of s including allocator overhead.
func (s Snapshot) Heap() int64 {
	return s[HeapBytes] + s[HeapExtra]
}

// Stacks returns the stack usage of s.
func (s Snapshot) Stacks() int64 {
	return s[StacksBytes]
}

// A Profile is the parsed content of one massif output file.
type Profile struct {
	// Header values that precede the first snapshot.
	Desc     string
	Cmd      string
	TimeUnit string

	// Snapshots maps each snapshot index to its attributes.
	Snapshots map[int]Snapshot
}

// Indices returns the snapshot indices of p in increasing order.
func (p *Profile) Indices() []int {
	idx := make([]int, 0, len(p.Snapshots))
	for i := range p.Snapshots {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// A SyntaxError reports a line massif would not have written.
type SyntaxError struct {
	FileName string
	Line     int
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.FileName, e.Line, e.Msg)
}

// Parse reads a massif output file from r. fileName is used in error
// messages only.
func Parse(r io.Reader, fileName string) (*Profile, error) {
	if fileName == "" {
		fileName = "<unknown>"
	}
	p := &Profile{Snapshots: make(map[int]Snapshot)}
	s := bufio.NewScanner(r)
	line := 0
	var cur Snapshot // nil while idle
	for s.Scan() {
		line++
		text := strings.TrimRight(s.Text(), "\r")
		if strings.HasPrefix(text, snapshotKey+"=") {
			// A snapshot marker also ends a block that had
			// no heap_tree line.
			n, err := strconv.Atoi(strings.TrimPrefix(text, snapshotKey+"="))
			if err != nil {
				return nil, &SyntaxError{fileName, line, fmt.Sprintf("bad snapshot index in %q", text)}
			}
			if _, ok := p.Snapshots[n]; ok {
				return nil, &SyntaxError{fileName, line, fmt.Sprintf("duplicate snapshot %d", n)}
			}
			cur = make(Snapshot)
			p.Snapshots[n] = cur
			continue
		}
		if cur == nil {
			if len(p.Snapshots) == 0 {
				p.header(text)
			}
			continue
		}
		switch {
		case strings.HasPrefix(text, commentStart):
			continue
		case strings.HasPrefix(text, heapTreeKey):
			cur = nil
			continue
		}
		key, val, ok := strings.Cut(text, "=")
		if !ok || key == "" {
			return nil, &SyntaxError{fileName, line, fmt.Sprintf("want key=value, got %q", text)}
		}
		v, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return nil, &SyntaxError{fileName, line, fmt.Sprintf("bad value for %s: %q", key, val)}
		}
		cur[key] = v
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("%s:%d: %w", fileName, line, err)
	}
	return p, nil
}

// header records a "key: value" header line.
func (p *Profile) header(text string) {
	key, val, ok := strings.Cut(text, ":")
	if !ok {
		return
	}
	val = strings.TrimSpace(val)
	switch key {
	case "desc":
		p.Desc = val
	case "cmd":
		p.Cmd = val
	case "time_unit":
		p.TimeUnit = val
	}
}
