// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package series

import "fmt"

// A Run is the parsed result of one benchmark invocation.
type Run struct {
	Index  int       // position in the sweep, from 0
	X      float64   // X coordinate: sweep value or reported allocation count
	Row    []float64 // the MetricRow
	Labels []string  // labels embedded in the artifact, if any
}

// An InconsistentRowLengthError reports a run whose row does not match
// the schema established by the first run.
type InconsistentRowLengthError struct {
	Run  int
	Got  int
	Want int
}

func (e *InconsistentRowLengthError) Error() string {
	return fmt.Sprintf("run %d: row has %d values, want %d", e.Run, e.Got, e.Want)
}

// An Aligner accumulates runs into per-implementation series.
//
// Configure the exported fields before the first call to Append.
type Aligner struct {
	// Layout is the row layout of the artifact format.
	Layout Layout

	// Labels, if non-empty, names the implementations and
	// overrides labels found in the artifacts.
	Labels []string

	// Phases names the phases of the layout. If nil,
	// Layout.DefaultPhases is used.
	Phases []string

	schema *Schema
	x      []float64
	values [][][]float64 // [impl][phase][run]
}

// Schema returns the established schema, or nil before the first run.
func (a *Aligner) Schema() *Schema {
	return a.schema
}

// Runs returns the number of runs appended so far.
func (a *Aligner) Runs() int {
	return len(a.x)
}

// Append adds run to the series. The first run establishes the
// schema. A later run with a different row length is rejected with an
// *InconsistentRowLengthError and leaves the series unchanged.
func (a *Aligner) Append(run Run) error {
	if a.schema == nil {
		if a.Phases != nil && len(a.Phases) != a.Layout.Phases() {
			return fmt.Errorf("%d phase names for %v layout, want %d", len(a.Phases), a.Layout, a.Layout.Phases())
		}
		s, err := NewSchema(a.Layout, len(run.Row), a.Labels, run.Labels)
		if err != nil {
			return fmt.Errorf("run %d: %w", run.Index, err)
		}
		a.schema = s
		a.values = make([][][]float64, s.Implementations())
		for i := range a.values {
			a.values[i] = make([][]float64, a.Layout.Phases())
		}
	}
	if len(run.Row) != a.schema.rowLen {
		return &InconsistentRowLengthError{run.Index, len(run.Row), a.schema.rowLen}
	}
	a.x = append(a.x, run.X)
	for impl := range a.values {
		for p := range a.values[impl] {
			a.values[impl][p] = append(a.values[impl][p], a.schema.value(run.Row, impl, p))
		}
	}
	return nil
}

// Set returns the accumulated series. The result does not share
// memory with a, so a may keep accumulating.
func (a *Aligner) Set(title, xLabel, yLabel string) *Set {
	phases := a.Phases
	if phases == nil {
		phases = a.Layout.DefaultPhases()
	}
	set := &Set{
		Title:  title,
		XLabel: xLabel,
		YLabel: yLabel,
		Phases: append([]string(nil), phases...),
	}
	if a.schema == nil {
		return set
	}
	x := append([]float64(nil), a.x...)
	for impl, label := range a.schema.labels {
		ser := &Series{Label: label, X: x, Values: make([][]float64, len(a.values[impl]))}
		for p, vals := range a.values[impl] {
			ser.Values[p] = append([]float64(nil), vals...)
		}
		set.Series = append(set.Series, ser)
	}
	return set
}
