// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package massif

import (
	"errors"
	"fmt"

	"github.com/rpools/poolperf/benchunit"
	"github.com/rpools/poolperf/series"
)

// ErrEmpty is returned for a profile without snapshots.
var ErrEmpty = errors.New("profile has no snapshots")

// Series returns the heap and stack usage of p over time, in snapshot
// index order. Values[0] is the heap usage including allocator
// overhead and Values[1] the stack usage, both in unit.
//
// A snapshot without attributes counts as zero usage at time zero.
func (p *Profile) Series(label string, unit benchunit.MemUnit) (*series.Series, error) {
	if len(p.Snapshots) == 0 {
		return nil, fmt.Errorf("%s: %w", label, ErrEmpty)
	}
	idx := p.Indices()
	s := &series.Series{
		Label:  label,
		X:      make([]float64, 0, len(idx)),
		Values: [][]float64{make([]float64, 0, len(idx)), make([]float64, 0, len(idx))},
	}
	for _, i := range idx {
		snap := p.Snapshots[i]
		s.X = append(s.X, float64(snap[Time]))
		s.Values[0] = append(s.Values[0], unit.Convert(snap.Heap()))
		s.Values[1] = append(s.Values[1], unit.Convert(snap.Stacks()))
	}
	return s, nil
}

// Set returns the heap/stack series set of several profiles.
// labels[i] names profs[i].
func Set(profs []*Profile, labels []string, unit benchunit.MemUnit) (*series.Set, error) {
	if len(profs) != len(labels) {
		return nil, fmt.Errorf("%d profiles but %d labels", len(profs), len(labels))
	}
	set := &series.Set{
		Title:  "Memory usage",
		XLabel: "running time",
		YLabel: unit.String(),
		Phases: []string{"Heap usage", "Stack usage"},
	}
	for i, p := range profs {
		if p.TimeUnit != "" && i == 0 {
			set.XLabel = fmt.Sprintf("running time (%s)", p.TimeUnit)
		}
		s, err := p.Series(labels[i], unit)
		if err != nil {
			return nil, err
		}
		set.Series = append(set.Series, s)
	}
	return set, nil
}
