// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elapsed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

type jsonTimes struct {
	AllocationTime   *float64 `json:"allocation_time"`
	DeallocationTime *float64 `json:"deallocation_time"`
}

// ParseJSON reads a JSON timing artifact of the form
//
//	{"allocators": {"<name>": {"allocation_time": ms, "deallocation_time": ms}, ...}}
//
// Allocators are returned in file order, each contributing its
// allocation and then its deallocation time, labeled with its name.
func ParseJSON(r io.Reader, fileName string) (*Result, error) {
	if fileName == "" {
		fileName = "<unknown>"
	}
	var top struct {
		Allocators json.RawMessage `json:"allocators"`
	}
	if err := json.NewDecoder(r).Decode(&top); err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	if len(top.Allocators) == 0 {
		return nil, fmt.Errorf("%s: missing \"allocators\" object", fileName)
	}

	// Walk the object by token so the allocator order of the file
	// is preserved.
	dec := json.NewDecoder(bytes.NewReader(top.Allocators))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, fmt.Errorf("%s: \"allocators\" is not an object", fileName)
	}
	res := new(Result)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fileName, err)
		}
		name := tok.(string)
		var t jsonTimes
		if err := dec.Decode(&t); err != nil {
			return nil, fmt.Errorf("%s: allocator %q: %w", fileName, name, err)
		}
		if t.AllocationTime == nil || t.DeallocationTime == nil {
			return nil, fmt.Errorf("%s: allocator %q: missing allocation_time or deallocation_time", fileName, name)
		}
		res.Values = append(res.Values,
			Value{Label: name, Value: *t.AllocationTime},
			Value{Label: name, Value: *t.DeallocationTime})
	}
	return res, nil
}
