// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package elapsed parses the timing artifacts written by the
// allocator benchmarks.
//
// The text artifact has one record per line:
//
//	Allocating 100000 objects.
//	Allocate TestObject normally: 12.5 ms
//	Deallocate TestObject normally: 7.25 ms
//
// Lines ending in a full stop are metadata lines. They carry no
// duration but may announce the allocation count actually used by the
// benchmark, which can differ from the requested one. Every other
// non-blank line is a data line whose duration is the second-to-last
// field.
package elapsed

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aclements/go-gg/generic/slice"
)

// A Format describes the field layout of data lines in a text
// artifact.
type Format struct {
	// LabelField is the index of the field holding the
	// implementation label, or -1 if data lines carry no label.
	// A trailing ':' is stripped from the label.
	LabelField int

	// ValueFromEnd locates the numeric field counting from the end
	// of the line: 1 is the last field, 2 the second-to-last.
	ValueFromEnd int
}

var (
	// Text is the plain timing format: "<anything> <ms> ms".
	Text = Format{LabelField: -1, ValueFromEnd: 2}

	// Labeled is the timing format with the implementation name in
	// the third field: "Allocate Obj LinkedPool: <ms> ms".
	Labeled = Format{LabelField: 2, ValueFromEnd: 2}

	// Overhead is the memory overhead format: "<anything> <bytes>".
	Overhead = Format{LabelField: -1, ValueFromEnd: 1}
)

// minFields returns the number of fields a data line needs.
func (f Format) minFields() int {
	n := f.ValueFromEnd
	if f.LabelField >= 0 && f.LabelField+f.ValueFromEnd+1 > n {
		// The label must precede the value and must not be
		// the value itself or the unit after it.
		n = f.LabelField + f.ValueFromEnd + 1
	}
	return n
}

// A Value is one data line of an artifact.
type Value struct {
	Label string // empty if the format has no label field
	Value float64
}

// A Result is the parsed content of one artifact.
type Result struct {
	// Values holds the data lines in file order.
	Values []Value

	// Count is the integer carried by the last metadata line, if
	// HasCount is set.
	Count    int
	HasCount bool
}

// Row returns the values of r in file order.
func (r *Result) Row() []float64 {
	row := make([]float64, len(r.Values))
	for i, v := range r.Values {
		row[i] = v.Value
	}
	return row
}

// Labels returns the distinct non-empty labels of r in order of first
// appearance.
func (r *Result) Labels() []string {
	var labels []string
	for _, v := range r.Values {
		if v.Label != "" {
			labels = append(labels, v.Label)
		}
	}
	if len(labels) == 0 {
		return nil
	}
	return slice.Nub(labels).([]string)
}

// A MalformedLineError reports a data line that does not match the
// expected layout.
type MalformedLineError struct {
	FileName string
	Line     int
	Msg      string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.FileName, e.Line, e.Msg)
}

// Parse reads a text artifact from r. fileName is used in error
// messages only.
//
// A malformed data line aborts the parse; no partial result is
// returned.
func Parse(r io.Reader, fileName string, f Format) (*Result, error) {
	if fileName == "" {
		fileName = "<unknown>"
	}
	if f.ValueFromEnd < 1 {
		panic("elapsed: Format.ValueFromEnd must be at least 1")
	}
	res := new(Result)
	s := bufio.NewScanner(r)
	line := 0
	for s.Scan() {
		line++
		text := strings.TrimRight(s.Text(), " \t\r")
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if strings.HasSuffix(text, ".") {
			if len(fields) >= 2 {
				if n, err := strconv.Atoi(fields[1]); err == nil {
					res.Count, res.HasCount = n, true
				}
			}
			continue
		}
		if len(fields) < f.minFields() {
			return nil, &MalformedLineError{fileName, line, fmt.Sprintf("want at least %d fields, got %d", f.minFields(), len(fields))}
		}
		raw := fields[len(fields)-f.ValueFromEnd]
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &MalformedLineError{fileName, line, fmt.Sprintf("bad value %q", raw)}
		}
		val := Value{Value: v}
		if f.LabelField >= 0 {
			val.Label = strings.TrimSuffix(fields[f.LabelField], ":")
		}
		res.Values = append(res.Values, val)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("%s:%d: %w", fileName, line, err)
	}
	return res, nil
}
