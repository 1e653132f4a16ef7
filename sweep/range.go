// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sweep

import "fmt"

// A Range is an inclusive arithmetic sequence of sweep values.
type Range struct {
	Min, Max, Step int
}

// Divisions returns the range limit/n, 2·limit/n, ..., limit.
func Divisions(limit, n int) (Range, error) {
	if n <= 0 || limit < n {
		return Range{}, fmt.Errorf("cannot divide %d into %d steps", limit, n)
	}
	step := limit / n
	return Range{Min: step, Max: limit, Step: step}, nil
}

// Values returns the values of r in increasing order.
func (r Range) Values() ([]int, error) {
	if r.Step <= 0 {
		return nil, fmt.Errorf("sweep step %d must be positive", r.Step)
	}
	if r.Max < r.Min {
		return nil, fmt.Errorf("sweep max %d is below min %d", r.Max, r.Min)
	}
	// Differences are taken as uint so that ranges ending near
	// math.MaxInt neither overflow nor loop forever.
	n := (uint(r.Max)-uint(r.Min))/uint(r.Step) + 1
	if n > maxRuns {
		return nil, fmt.Errorf("sweep %v has %d runs, more than %d", r, n, maxRuns)
	}
	vals := make([]int, 0, n)
	for v := r.Min; ; v += r.Step {
		vals = append(vals, v)
		if uint(r.Max)-uint(v) < uint(r.Step) {
			break
		}
	}
	return vals, nil
}

const maxRuns = 1 << 20

func (r Range) String() string {
	return fmt.Sprintf("%d..%d step %d", r.Min, r.Max, r.Step)
}
