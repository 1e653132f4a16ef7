// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package allocsnap

import (
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
)

func decode(t *testing.T, data string) []Snapshot {
	t.Helper()
	snaps, err := Decode(strings.NewReader(data), "test")
	if err != nil {
		t.Fatal(err)
	}
	return snaps
}

func TestReduceSentinel(t *testing.T) {
	snaps := decode(t, `[null, {"Foo": {"8": {"4": {"function": "f", "current": 2, "peak": 5}}}}]`)
	red, err := Reduce(snaps, 1)
	if err != nil {
		t.Fatal(err)
	}
	if want := []Key{{"Foo", "8", "4"}}; !reflect.DeepEqual(red.Keys, want) {
		t.Fatalf("keys: got %v, want %v", red.Keys, want)
	}
	if red.Keys[0].String() != "Foo/8/4" {
		t.Errorf("key string: got %s", red.Keys[0])
	}
	if want := [][]int64{{0, 2}}; !reflect.DeepEqual(red.Current, want) {
		t.Errorf("current: got %v, want %v", red.Current, want)
	}
	if want := []float64{0, 100}; !reflect.DeepEqual(red.X, want) {
		t.Errorf("x: got %v, want %v", red.X, want)
	}
	if red.Final[0].Peak != 5 {
		t.Errorf("peak: got %d, want 5", red.Final[0].Peak)
	}
	if !reflect.DeepEqual(red.Functions, []string{"f"}) || !reflect.DeepEqual(red.Types, []string{"Foo"}) {
		t.Errorf("headers: got %v, %v", red.Types, red.Functions)
	}
	if red.Snapshots != 1 {
		t.Errorf("visible snapshots: got %d, want 1", red.Snapshots)
	}

	_, err = Reduce(snaps, 10)
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("threshold 10: got %v, want ErrEmptyInput", err)
	}
}

func TestReduceEmpty(t *testing.T) {
	for _, data := range []string{`[]`, `[null]`, `[null, null]`} {
		if _, err := Reduce(decode(t, data), 0); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("%s: got %v, want ErrEmptyInput", data, err)
		}
	}
}

func TestRegistry(t *testing.T) {
	snaps := decode(t, `[
{"Tmp": {"8": {"8": {"function": "scratch", "current": 4, "peak": 4}}}},
{"Foo": {"8": {"4": {"function": "f", "current": 2, "peak": 5}}}},
null]`)
	types, funcs := Registry(snaps)
	if want := []string{"Foo"}; !reflect.DeepEqual(types, want) {
		t.Errorf("types: got %v, want %v", types, want)
	}
	if want := []string{"f"}; !reflect.DeepEqual(funcs, want) {
		t.Errorf("functions: got %v, want %v", funcs, want)
	}

	types, funcs = Registry(decode(t, `[null]`))
	if len(types) != 0 || len(funcs) != 0 {
		t.Errorf("sentinels only: got %v, %v", types, funcs)
	}
}

func TestReduceFile(t *testing.T) {
	f, err := os.Open("testdata/object_snapshots_4242.output")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	snaps, err := Decode(f, f.Name())
	if err != nil {
		t.Fatal(err)
	}
	red, err := Reduce(snaps, 10)
	if err != nil {
		t.Fatal(err)
	}
	// SomeObject/8/160 peaked at 1 and is filtered out, but its
	// type and function still appear in the headers.
	if want := []Key{{"Obj2", "16", "32"}, {"SomeObject", "8", "16"}}; !reflect.DeepEqual(red.Keys, want) {
		t.Errorf("keys: got %v, want %v", red.Keys, want)
	}
	if want := [][]int64{{0, 0, 30, 2}, {0, 10, 4, 0}}; !reflect.DeepEqual(red.Current, want) {
		t.Errorf("current: got %v, want %v", red.Current, want)
	}
	if want := []string{"bench", "main", "makeArray"}; !reflect.DeepEqual(red.Functions, want) {
		t.Errorf("functions: got %v, want %v", red.Functions, want)
	}
	if want := []string{"Obj2", "SomeObject"}; !reflect.DeepEqual(red.Types, want) {
		t.Errorf("types: got %v, want %v", red.Types, want)
	}
	for i, cur := range red.Current {
		if len(cur) != len(snaps) {
			t.Errorf("%v: %d points, want %d", red.Keys[i], len(cur), len(snaps))
		}
	}

	set := red.Set()
	if len(set.Series) != 2 || set.Series[1].Label != "SomeObject/8/16" {
		t.Fatalf("set: got %+v", set.Series)
	}
	if want := []float64{0, 10, 4, 0}; !reflect.DeepEqual(set.Series[1].Values[0], want) {
		t.Errorf("set values: got %v, want %v", set.Series[1].Values[0], want)
	}
}

func TestKeyOrder(t *testing.T) {
	s := Snapshot{"A": {"16": {"8": {}, "64": {}}, "8": {"128": {}}}}
	want := []Key{{"A", "8", "128"}, {"A", "16", "8"}, {"A", "16", "64"}}
	if got := s.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRows(t *testing.T) {
	snaps := decode(t, `[null,
		{"Foo": {"8": {"4": {"function": "f", "current": 2, "peak": 5}}}},
		{"Foo": {"8": {"4": {"function": "f", "current": 1, "peak": 5}}}, "Bar": {"4": {"4": {"function": "g", "current": 3, "peak": 3}}}}]`)
	got := Rows(snaps)
	want := []Row{
		{1, Key{"Foo", "8", "4"}, Record{"f", 2, 5}},
		{2, Key{"Bar", "4", "4"}, Record{"g", 3, 3}},
		{2, Key{"Foo", "8", "4"}, Record{"f", 1, 5}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDecodeError(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"not": "an array"}`), "bad"); err == nil {
		t.Error("Decode of object succeeded")
	}
}
