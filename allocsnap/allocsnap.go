// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package allocsnap reduces the per-type allocation snapshots written
// by the instrumented new/delete operators.
//
// The artifact is a JSON array with one element per sampling tick.
// An element is either null, meaning nothing had been recorded yet,
// or an object
//
//	{"<type>": {"<alignment>": {"<size>": {"function": "...", "current": n, "peak": n}}}}
package allocsnap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Interval is the time in milliseconds between two snapshots.
const Interval = 100

// ErrEmptyInput is returned when there is nothing to report.
var ErrEmptyInput = errors.New("no allocation records")

// A Record holds the counters of one (type, alignment, size) key.
// Peak is the running maximum of Current and so is never below it.
type Record struct {
	Function string `json:"function"`
	Current  int64  `json:"current"`
	Peak     int64  `json:"peak"`
}

// A Snapshot maps type name, alignment and allocation size to a Record.
// A nil Snapshot is the sentinel written before anything was recorded.
type Snapshot map[string]map[string]map[string]Record

// A Key identifies an allocation record.
type Key struct {
	Type      string
	Alignment string
	Size      string
}

func (k Key) String() string {
	return k.Type + "/" + k.Alignment + "/" + k.Size
}

// Lookup returns the record for k in s, or false if s has none.
func (s Snapshot) Lookup(k Key) (Record, bool) {
	r, ok := s[k.Type][k.Alignment][k.Size]
	return r, ok
}

// Keys returns the keys of s in sorted order.
func (s Snapshot) Keys() []Key {
	var keys []Key
	for typ, aligns := range s {
		for align, sizes := range aligns {
			for size := range sizes {
				keys = append(keys, Key{typ, align, size})
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

func (k Key) less(o Key) bool {
	if k.Type != o.Type {
		return k.Type < o.Type
	}
	if k.Alignment != o.Alignment {
		return numLess(k.Alignment, o.Alignment)
	}
	return numLess(k.Size, o.Size)
}

// numLess orders decimal strings numerically and anything else
// lexically after them.
func numLess(a, b string) bool {
	x, errx := strconv.ParseInt(a, 10, 64)
	y, erry := strconv.ParseInt(b, 10, 64)
	switch {
	case errx == nil && erry == nil:
		return x < y
	case errx == nil:
		return true
	case erry == nil:
		return false
	}
	return a < b
}

// Decode reads a snapshot artifact.
func Decode(r io.Reader, fileName string) ([]Snapshot, error) {
	var snaps []Snapshot
	if err := json.NewDecoder(r).Decode(&snaps); err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	return snaps, nil
}

// Visible returns the number of non-sentinel snapshots.
func Visible(snaps []Snapshot) int {
	n := 0
	for _, s := range snaps {
		if s != nil {
			n++
		}
	}
	return n
}

// final returns the last non-sentinel snapshot.
func final(snaps []Snapshot) Snapshot {
	for i := len(snaps) - 1; i >= 0; i-- {
		if snaps[i] != nil {
			return snaps[i]
		}
	}
	return nil
}
