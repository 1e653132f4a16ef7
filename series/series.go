// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package series assembles per-run benchmark measurements into
// per-implementation series suitable for charting.
//
// The number of implementations in a sweep, and their names, are not
// known until the first run's artifact has been parsed. An Aligner
// therefore works in two phases: the first appended run establishes an
// immutable Schema, and every later run must match it.
package series

import (
	"errors"
	"fmt"
)

// A Set is a collection of series that are plotted together.
//
// Each phase is drawn as its own subplot, for example allocation and
// deallocation time, or heap and stack usage.
type Set struct {
	Title  string
	XLabel string
	YLabel string
	Phases []string
	Series []*Series
}

// A Series is the sequence of measurements of one implementation.
type Series struct {
	Label string

	// X holds the X coordinate of each point, in run order.
	X []float64

	// Values[p][i] is the value of phase p at X[i].
	Values [][]float64
}

// Lookup returns the series labeled label, or nil.
func (s *Set) Lookup(label string) *Series {
	for _, ser := range s.Series {
		if ser.Label == label {
			return ser
		}
	}
	return nil
}

// Points returns the number of points in s.
func (s *Series) Points() int {
	return len(s.X)
}

// A Layout describes how a MetricRow orders the values of its
// implementations.
type Layout int

const (
	// Interleaved rows hold alloc₀, dealloc₀, alloc₁, dealloc₁, ...
	Interleaved Layout = iota
	// Grouped rows hold alloc₀, ..., allocₙ₋₁, dealloc₀, ..., deallocₙ₋₁.
	Grouped
	// Single rows hold one value per implementation.
	Single
)

var layoutNames = map[string]Layout{
	"interleaved": Interleaved,
	"grouped":     Grouped,
	"single":      Single,
}

// ParseLayout returns the layout with the given name.
func ParseLayout(name string) (Layout, error) {
	l, ok := layoutNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown layout %q (want interleaved, grouped or single)", name)
	}
	return l, nil
}

func (l Layout) String() string {
	for name, v := range layoutNames {
		if v == l {
			return name
		}
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

// Phases returns the number of values each implementation contributes
// to a row.
func (l Layout) Phases() int {
	if l == Single {
		return 1
	}
	return 2
}

// DefaultPhases returns the phase names used when none are configured.
func (l Layout) DefaultPhases() []string {
	if l == Single {
		return []string{"Value"}
	}
	return []string{"Allocation", "Deallocation"}
}

var (
	// ErrRowShape is returned when the first row cannot be split
	// into whole implementations.
	ErrRowShape = errors.New("row length is not a multiple of the phase count")

	// ErrLabelCount is returned when the number of labels does
	// not match the number of implementations.
	ErrLabelCount = errors.New("label count does not match implementation count")
)

// A Schema is the shape of a sweep's rows. It is established by the
// first run and never changes afterwards.
type Schema struct {
	layout Layout
	rowLen int
	labels []string
}

// NewSchema derives the schema of a sweep from its first row.
//
// Labels are taken from configured if it is non-empty, otherwise from
// discovered, otherwise generated as impl0, impl1, and so on. In the
// first two cases their number must equal the implementation count.
func NewSchema(layout Layout, rowLen int, configured, discovered []string) (*Schema, error) {
	phases := layout.Phases()
	if rowLen == 0 || rowLen%phases != 0 {
		return nil, fmt.Errorf("%w: %d values, %d phases", ErrRowShape, rowLen, phases)
	}
	n := rowLen / phases
	labels := configured
	if len(labels) == 0 {
		labels = discovered
	}
	if len(labels) == 0 {
		labels = make([]string, n)
		for i := range labels {
			labels[i] = fmt.Sprintf("impl%d", i)
		}
	} else if len(labels) != n {
		return nil, fmt.Errorf("%w: %d labels %q, %d implementations", ErrLabelCount, len(labels), labels, n)
	}
	return &Schema{layout, rowLen, append([]string(nil), labels...)}, nil
}

// Layout returns the row layout of s.
func (s *Schema) Layout() Layout { return s.layout }

// RowLen returns the length every row of the sweep must have.
func (s *Schema) RowLen() int { return s.rowLen }

// Implementations returns the number of implementations.
func (s *Schema) Implementations() int { return len(s.labels) }

// Labels returns the implementation labels in row order.
func (s *Schema) Labels() []string {
	return append([]string(nil), s.labels...)
}

// value returns the value of implementation impl in phase p of row.
func (s *Schema) value(row []float64, impl, p int) float64 {
	switch s.layout {
	case Interleaved:
		return row[impl*2+p]
	case Grouped:
		return row[p*len(s.labels)+impl]
	}
	return row[impl]
}
