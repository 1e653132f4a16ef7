// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package allocsnap

import (
	"fmt"
	"sort"

	"github.com/rpools/poolperf/series"
)

// A Reduction is the charting view of a snapshot sequence.
type Reduction struct {
	// X holds the time of each snapshot: index × Interval.
	X []float64

	// Keys lists the keys whose final peak reached the threshold,
	// in sorted order.
	Keys []Key

	// Current[k][i] is the live count of Keys[k] at X[i].
	Current [][]int64

	// Final holds the final record of each of Keys.
	Final []Record

	// Types and Functions are the distinct type names and source
	// functions of the final snapshot, sorted.
	Types     []string
	Functions []string

	// Snapshots is the number of non-sentinel snapshots.
	Snapshots int
}

// Reduce builds a time series of the live count of every key whose
// final peak is at least threshold.
//
// The last snapshot is the registry of all keys. A key missing from an
// earlier snapshot, including a sentinel, had no live instances then
// and contributes 0. Reduce fails with ErrEmptyInput if there are no
// non-sentinel snapshots or no key reaches the threshold.
func Reduce(snaps []Snapshot, threshold int64) (*Reduction, error) {
	last := final(snaps)
	if last == nil {
		return nil, fmt.Errorf("%w: %d snapshots, all empty", ErrEmptyInput, len(snaps))
	}
	red := &Reduction{
		X:         make([]float64, len(snaps)),
		Snapshots: Visible(snaps),
	}
	for i := range snaps {
		red.X[i] = float64(i * Interval)
	}

	red.Types, red.Functions = Registry(snaps)
	for _, k := range last.Keys() {
		rec, _ := last.Lookup(k)
		if rec.Peak < threshold {
			continue
		}
		cur := make([]int64, len(snaps))
		for i, s := range snaps {
			if r, ok := s.Lookup(k); ok {
				cur[i] = r.Current
			}
		}
		red.Keys = append(red.Keys, k)
		red.Final = append(red.Final, rec)
		red.Current = append(red.Current, cur)
	}
	if len(red.Keys) == 0 {
		return nil, fmt.Errorf("%w: no peak reaches %d", ErrEmptyInput, threshold)
	}
	return red, nil
}

// Registry returns the distinct type names and source functions of
// the final snapshot, sorted. Both are empty if every snapshot is a
// sentinel.
func Registry(snaps []Snapshot) (types, functions []string) {
	ts := make(map[string]bool)
	fs := make(map[string]bool)
	last := final(snaps)
	for _, k := range last.Keys() {
		rec, _ := last.Lookup(k)
		ts[k.Type] = true
		fs[rec.Function] = true
	}
	return sortedKeys(ts), sortedKeys(fs)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Set returns the live-count series of r.
func (r *Reduction) Set() *series.Set {
	set := &series.Set{
		Title:  "Objects currently allocated",
		XLabel: "Elapsed time (ms)",
		YLabel: "Number of objects currently allocated",
		Phases: []string{"Currently allocated"},
	}
	for i, k := range r.Keys {
		vals := make([]float64, len(r.Current[i]))
		for j, c := range r.Current[i] {
			vals[j] = float64(c)
		}
		set.Series = append(set.Series, &series.Series{
			Label:  k.String(),
			X:      r.X,
			Values: [][]float64{vals},
		})
	}
	return set
}
