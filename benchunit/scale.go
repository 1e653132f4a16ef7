// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchunit

import (
	"math"
	"strconv"
)

// A Scaler represents a scaling factor for a number and
// its scientific representation.
type Scaler struct {
	Prec   int     // Digits after the decimal point
	Factor float64 // Unscaled value of 1 Prefix (e.g., 1 k => 1000)
	Prefix string  // Unit prefix ("k", "M", "Ki", etc)
}

// Format formats val and appends the unit prefix according to the
// given scale. For example, with a kilo Scaler of precision 1,
// Format(123456) returns "123.5k".
func (s Scaler) Format(val float64) string {
	buf := make([]byte, 0, 20)
	buf = strconv.AppendFloat(buf, val/s.Factor, 'f', s.Prec, 64)
	buf = append(buf, s.Prefix...)
	return string(buf)
}

// NoOpScaler formats numbers with the smallest number of digits
// necessary to capture the exact value, and no prefix.
var NoOpScaler = Scaler{-1, 1, ""}

type prefix struct {
	factor float64
	name   string
}

var (
	siPrefixes  = []prefix{{1e12, "T"}, {1e9, "G"}, {1e6, "M"}, {1e3, "k"}, {1, ""}, {1e-3, "m"}, {1e-6, "µ"}, {1e-9, "n"}}
	iecPrefixes = []prefix{{1 << 40, "Ti"}, {1 << 30, "Gi"}, {1 << 20, "Mi"}, {1 << 10, "Ki"}, {1, ""}}
)

// Scale formats val using at least three significant digits,
// appending an SI or binary prefix.
func Scale(val float64, cls Class) string {
	return CommonScale([]float64{val}, cls).Format(val)
}

// CommonScale returns a common Scaler to apply to all values in vals.
// This scale will show at least three significant digits for every
// value. The scale is determined by the non-zero value closest to
// zero.
func CommonScale(vals []float64, cls Class) Scaler {
	var min float64
	for _, v := range vals {
		v = math.Abs(v)
		if v != 0 && (min == 0 || v < min) {
			min = v
		}
	}
	if min == 0 {
		return Scaler{3, 1, ""}
	}

	prefixes := siPrefixes
	if cls == Binary {
		prefixes = iecPrefixes
	}
	for _, p := range prefixes {
		// Compare against the rounded rendering so that, for
		// example, 999.95 prints as 1.000k and not 1000.0.
		scaled := min / p.factor
		switch {
		case roundsAtLeast(scaled, 1, 100):
			return Scaler{1, p.factor, p.name}
		case roundsAtLeast(scaled, 2, 10):
			return Scaler{2, p.factor, p.name}
		case roundsAtLeast(scaled, 3, 1):
			return Scaler{3, p.factor, p.name}
		}
	}

	// Smaller than the smallest prefix. Add digits until three
	// are significant.
	p := prefixes[len(prefixes)-1]
	scaled := min / p.factor
	prec := 4
	for t := 0.1; prec < 10 && !roundsAtLeast(scaled, prec, t); t /= 10 {
		prec++
	}
	return Scaler{prec, p.factor, p.name}
}

// roundsAtLeast reports whether x, printed with prec digits after the
// decimal point, is at least limit.
func roundsAtLeast(x float64, prec int, limit float64) bool {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'f', prec, 64), 64)
	return r >= limit
}
