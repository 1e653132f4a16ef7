// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sweep

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// A Plan describes a sweep stored in a file. For example:
//
//	{
//	  "executable": "build/bench_linked",
//	  "args": ["{n}", "8"],
//	  "format": "labeled",
//	  "layout": "interleaved",
//	  "limit": 100000,
//	  "divisions": 10
//	}
//
// Either Step or Limit must be set. A zero Divisions means 10.
type Plan struct {
	Executable string   `mapstructure:"executable"`
	Args       []string `mapstructure:"args"`
	Artifact   string   `mapstructure:"artifact"`
	Overhead   string   `mapstructure:"overhead"` // optional second artifact of each run
	Format     string   `mapstructure:"format"`
	Layout     string   `mapstructure:"layout"`
	Labels     []string `mapstructure:"labels"`

	Min  int `mapstructure:"min"`
	Max  int `mapstructure:"max"`
	Step int `mapstructure:"step"`

	Limit     int `mapstructure:"limit"`
	Divisions int `mapstructure:"divisions"`
}

// DecodePlan converts the decoded form of a plan file into a Plan.
// Unknown keys are an error.
func DecodePlan(m map[string]any) (*Plan, error) {
	p := new(Plan)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  rejectFractions,
		Result:      p,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	return p, nil
}

// rejectFractions stops JSON numbers such as 100000.7 from being
// truncated into integer fields.
func rejectFractions(from, to reflect.Type, data any) (any, error) {
	f, ok := data.(float64)
	if !ok || to.Kind() != reflect.Int {
		return data, nil
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return nil, fmt.Errorf("%v is not an integer", f)
	}
	return data, nil
}

// ReadPlan reads a JSON plan from r.
func ReadPlan(r io.Reader) (*Plan, error) {
	var m map[string]any
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	return DecodePlan(m)
}

// LoadPlan reads a JSON plan from the named file.
func LoadPlan(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := ReadPlan(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Range returns the sweep range of p.
func (p *Plan) Range() (Range, error) {
	if p.Step != 0 {
		return Range{Min: p.Min, Max: p.Max, Step: p.Step}, nil
	}
	if p.Limit == 0 {
		return Range{}, fmt.Errorf("plan needs a step or a limit")
	}
	d := p.Divisions
	if d == 0 {
		d = 10
	}
	return Divisions(p.Limit, d)
}

// Command returns the invocation template of p.
func (p *Plan) Command() Command {
	return Command{Path: p.Executable, Args: append([]string(nil), p.Args...)}
}
