// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchunit converts benchmark measurements between units and
// formats numbers in those units.
package benchunit

import (
	"fmt"
	"strings"
)

// A MemUnit is a unit for memory quantities.
type MemUnit int

const (
	Bytes MemUnit = iota
	KiB
	MiB
)

// ParseMemUnit parses a memory unit selector. It accepts the short
// forms "b", "k" and "m" as well as the unit names, ignoring case.
func ParseMemUnit(s string) (MemUnit, error) {
	switch strings.ToLower(s) {
	case "b", "bytes", "byte":
		return Bytes, nil
	case "k", "kib", "kibs":
		return KiB, nil
	case "m", "mib", "mibs":
		return MiB, nil
	}
	return 0, fmt.Errorf("unknown memory unit %q (want b, k or m)", s)
}

// Factor returns the number of bytes in one u.
func (u MemUnit) Factor() float64 {
	switch u {
	case KiB:
		return 1 << 10
	case MiB:
		return 1 << 20
	}
	return 1
}

// Convert converts a byte count to u.
func (u MemUnit) Convert(bytes int64) float64 {
	return float64(bytes) / u.Factor()
}

func (u MemUnit) String() string {
	switch u {
	case Bytes:
		return "bytes"
	case KiB:
		return "KiB"
	case MiB:
		return "MiB"
	}
	return fmt.Sprintf("MemUnit(%d)", int(u))
}

// A Class specifies what class of unit prefixes are in use.
type Class int

const (
	// Decimal scales by powers of 1000 using SI prefixes.
	Decimal Class = iota
	// Binary scales by powers of 1024 using IEC prefixes.
	Binary
)

func (c Class) String() string {
	switch c {
	case Decimal:
		return "Decimal"
	case Binary:
		return "Binary"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// ClassOf returns Binary if label names a byte unit and Decimal
// otherwise.
func ClassOf(label string) Class {
	for _, f := range strings.FieldsFunc(label, func(r rune) bool {
		return r == ' ' || r == '/' || r == '(' || r == ')'
	}) {
		switch f {
		case "B", "bytes", "KiB", "MiB":
			return Binary
		}
	}
	return Decimal
}
