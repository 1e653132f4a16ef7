// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"fmt"
	"io"

	"github.com/aclements/go-gg/table"
	"github.com/aclements/go-moremath/stats"

	"github.com/rpools/poolperf/benchunit"
	"github.com/rpools/poolperf/series"
)

// A Stat summarizes one phase of one series.
type Stat struct {
	Label, Phase string

	N                      int
	Mean, StdDev, Min, Max float64
}

// Summarize returns a Stat for every series and phase of set, in
// series order. Phases without values are omitted.
func Summarize(set *series.Set) []Stat {
	var out []Stat
	for _, s := range set.Series {
		for p, phase := range set.Phases {
			if p >= len(s.Values) || len(s.Values[p]) == 0 {
				continue
			}
			sample := stats.Sample{Xs: s.Values[p]}
			min, max := sample.Bounds()
			out = append(out, Stat{
				Label:  s.Label,
				Phase:  phase,
				N:      len(sample.Xs),
				Mean:   sample.Mean(),
				StdDev: sample.StdDev(),
				Min:    min,
				Max:    max,
			})
		}
	}
	return out
}

// WriteSummary prints a table of the statistics of set to w. Values
// share one scale so columns can be compared.
func WriteSummary(w io.Writer, set *series.Set) error {
	sum := Summarize(set)
	if len(sum) == 0 {
		return ErrNoSeries
	}

	var all []float64
	for _, st := range sum {
		all = append(all, st.Mean, st.Min, st.Max)
	}
	sc := benchunit.CommonScale(all, benchunit.ClassOf(set.YLabel))

	n := len(sum)
	labels, phases := make([]string, n), make([]string, n)
	counts := make([]int, n)
	means, sds, mins, maxs := make([]string, n), make([]string, n), make([]string, n), make([]string, n)
	for i, st := range sum {
		labels[i], phases[i], counts[i] = st.Label, st.Phase, st.N
		means[i] = sc.Format(st.Mean)
		sds[i] = "±" + sc.Format(st.StdDev)
		mins[i] = sc.Format(st.Min)
		maxs[i] = sc.Format(st.Max)
	}
	tbl := table.NewBuilder(nil).
		Add("implementation", labels).
		Add("phase", phases).
		Add("n", counts).
		Add("mean", means).
		Add("stddev", sds).
		Add("min", mins).
		Add("max", maxs).
		Done()

	if set.Title != "" {
		if _, err := fmt.Fprintf(w, "%s (%s)\n", set.Title, set.YLabel); err != nil {
			return err
		}
	}
	return table.Fprint(w, tbl)
}
