// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sweep

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"
)

// When fakeBenchEnv is set, the test binary acts as a benchmark
// executable taking the allocation count as its first argument.
const (
	fakeBenchEnv    = "POOLPERF_FAKE_BENCH"
	fakeArtifactEnv = "POOLPERF_FAKE_ARTIFACT"
)

func TestMain(m *testing.M) {
	if mode := os.Getenv(fakeBenchEnv); mode != "" {
		os.Exit(fakeBench(mode, os.Args[1:]))
	}
	os.Exit(m.Run())
}

func fakeBench(mode string, args []string) int {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	switch mode {
	case "text":
		out := fmt.Sprintf("Allocating %d objects.\nA: %d ms\nB: %d ms\n", n, n/10, n/20)
		if err := os.WriteFile(os.Getenv(fakeArtifactEnv), []byte(out), 0666); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	case "pair", "half":
		out := fmt.Sprintf("A: %d ms\nB: %d ms\n", n/10, n/20)
		if err := os.WriteFile(os.Getenv(fakeArtifactEnv), []byte(out), 0666); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if mode == "half" {
			break
		}
		if err := os.WriteFile("overheads.txt", []byte(fmt.Sprintf("A %d\n", n*8)), 0666); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	case "fail":
		fmt.Fprintf(os.Stderr, "cannot allocate %d objects\n", n)
		return 3
	case "none":
	}
	return 0
}

func testDriver(t *testing.T, mode string) *Driver {
	t.Setenv(fakeBenchEnv, mode)
	t.Setenv(fakeArtifactEnv, "out.txt")
	exe, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	return &Driver{
		Command:   Command{Path: exe},
		Artifacts: []string{"out.txt"},
		Dir:       t.TempDir(),
		Logger:    slog.New(slog.NewTextHandler(new(bytes.Buffer), nil)),
	}
}

func TestSweep(t *testing.T) {
	d := testDriver(t, "text")
	var logBuf, progress bytes.Buffer
	d.Logger = slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d.Progress = &progress

	var runs []Run
	var arts []string
	err := d.Sweep(context.Background(), []int{100, 200, 300}, func(run Run, data [][]byte) error {
		runs = append(runs, run)
		arts = append(arts, string(data[0]))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	art := filepath.Join(d.Dir, "out.txt")
	wantRuns := []Run{{0, 100, []string{art}}, {1, 200, []string{art}}, {2, 300, []string{art}}}
	if !reflect.DeepEqual(runs, wantRuns) {
		t.Errorf("runs: want %v, got %v", wantRuns, runs)
	}
	wantArts := []string{
		"Allocating 100 objects.\nA: 10 ms\nB: 5 ms\n",
		"Allocating 200 objects.\nA: 20 ms\nB: 10 ms\n",
		"Allocating 300 objects.\nA: 30 ms\nB: 15 ms\n",
	}
	if !reflect.DeepEqual(arts, wantArts) {
		t.Errorf("artifacts: want %q, got %q", wantArts, arts)
	}
	if !strings.Contains(logBuf.String(), "msg=\"starting run\" run=2 value=300") {
		t.Errorf("log does not record run 2:\n%s", logBuf.String())
	}
	if progress.Len() == 0 {
		t.Errorf("no progress written")
	}
}

func TestSweepProcessFailure(t *testing.T) {
	d := testDriver(t, "fail")
	called := false
	err := d.Sweep(context.Background(), []int{10, 20}, func(Run, [][]byte) error {
		called = true
		return nil
	})
	var pe *ProcessError
	if !errors.As(err, &pe) {
		t.Fatalf("want *ProcessError, got %v", err)
	}
	if called {
		t.Errorf("visit called after failed run")
	}
	if pe.Run.Index != 0 || pe.Run.Value != 10 || pe.ExitCode != 3 {
		t.Errorf("want run 0, value 10, exit 3; got %+v", pe)
	}
	if pe.Stderr != "cannot allocate 10 objects" {
		t.Errorf("want stderr tail, got %q", pe.Stderr)
	}
}

func TestSweepStartFailure(t *testing.T) {
	d := &Driver{
		Command:   Command{Path: filepath.Join(t.TempDir(), "no-such-bench")},
		Artifacts: []string{filepath.Join(t.TempDir(), "out.txt")},
	}
	err := d.Sweep(context.Background(), []int{1}, func(Run, [][]byte) error { return nil })
	var pe *ProcessError
	if !errors.As(err, &pe) {
		t.Fatalf("want *ProcessError, got %v", err)
	}
	if pe.ExitCode != -1 {
		t.Errorf("want exit code -1, got %d", pe.ExitCode)
	}
}

func TestSweepStaleArtifact(t *testing.T) {
	d := testDriver(t, "none")
	art := filepath.Join(d.Dir, "out.txt")
	if err := os.WriteFile(art, []byte("A: 1 ms\n"), 0666); err != nil {
		t.Fatal(err)
	}
	err := d.Sweep(context.Background(), []int{10}, func(Run, [][]byte) error {
		t.Errorf("stale artifact visited")
		return nil
	})
	if !errors.Is(err, ErrArtifactMissing) {
		t.Fatalf("want ErrArtifactMissing, got %v", err)
	}
	if errors.Is(err, ErrArtifactUnreadable) {
		t.Errorf("missing artifact also matches ErrArtifactUnreadable")
	}
	var ae *ArtifactError
	if !errors.As(err, &ae) || ae.Path != art {
		t.Errorf("want artifact %s in error, got %v", art, err)
	}
}

func TestSweepVisitError(t *testing.T) {
	d := testDriver(t, "text")
	bad := errors.New("bad row")
	err := d.Sweep(context.Background(), []int{10, 20, 30}, func(run Run, _ [][]byte) error {
		if run.Value == 20 {
			return bad
		}
		return nil
	})
	var re *RunError
	if !errors.As(err, &re) {
		t.Fatalf("want *RunError, got %v", err)
	}
	if re.Run.Index != 1 || !errors.Is(err, bad) {
		t.Errorf("want run 1 wrapping %v, got %v", bad, err)
	}
	if errors.Is(err, ErrArtifactUnreadable) {
		t.Errorf("visitor error that is not a parse error matches ErrArtifactUnreadable")
	}

	err = d.Sweep(context.Background(), []int{10}, func(Run, [][]byte) error {
		return fmt.Errorf("row: %w", &ParseError{bad})
	})
	if !errors.As(err, &re) || !errors.Is(err, ErrArtifactUnreadable) || !errors.Is(err, bad) {
		t.Errorf("parse failure: want *RunError matching ErrArtifactUnreadable, got %v", err)
	}
}

func TestSweepArtifacts(t *testing.T) {
	d := testDriver(t, "pair")
	d.Artifacts = []string{"out.txt", "overheads.txt"}
	var got [][]string
	err := d.Sweep(context.Background(), []int{100, 200}, func(run Run, data [][]byte) error {
		if len(data) != len(run.Artifacts) {
			t.Errorf("run %d: %d artifacts for %d paths", run.Index, len(data), len(run.Artifacts))
		}
		var arts []string
		for _, b := range data {
			arts = append(arts, string(b))
		}
		got = append(got, arts)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"A: 10 ms\nB: 5 ms\n", "A 800\n"},
		{"A: 20 ms\nB: 10 ms\n", "A 1600\n"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("want %q, got %q", want, got)
	}

	// A stale second artifact must not satisfy a run that did not
	// write it.
	t.Setenv(fakeBenchEnv, "half")
	err = d.Sweep(context.Background(), []int{100}, func(Run, [][]byte) error {
		t.Errorf("run without its second artifact visited")
		return nil
	})
	var ae *ArtifactError
	if !errors.As(err, &ae) || !errors.Is(err, ErrArtifactMissing) || ae.Path != filepath.Join(d.Dir, "overheads.txt") {
		t.Errorf("want missing overheads.txt, got %v", err)
	}

	d.Artifacts = nil
	if err := d.Sweep(context.Background(), []int{1}, func(Run, [][]byte) error { return nil }); err == nil {
		t.Errorf("no artifacts: want error")
	}
}

var errClosed = errors.New("terminal closed")

type closedWriter struct{}

func (closedWriter) Write([]byte) (int, error) { return 0, errClosed }

func TestSweepProgressError(t *testing.T) {
	d := testDriver(t, "text")
	d.Progress = closedWriter{}
	err := d.Sweep(context.Background(), []int{10}, func(Run, [][]byte) error { return nil })
	if !errors.Is(err, errClosed) {
		t.Errorf("want progress write error, got %v", err)
	}
}

func TestArgv(t *testing.T) {
	for _, test := range []struct {
		args []string
		want []string
	}{
		{nil, []string{"40"}},
		{[]string{"8"}, []string{"40", "8"}},
		{[]string{"-n={n}", "-pool", "8"}, []string{"-n=40", "-pool", "8"}},
		{[]string{"{n}", "{n}x"}, []string{"40", "40x"}},
	} {
		c := Command{Path: "bench", Args: test.args}
		if got := c.Argv(40); !reflect.DeepEqual(got, test.want) {
			t.Errorf("%v.Argv(40): want %q, got %q", test.args, test.want, got)
		}
	}
}

func TestMassifCommand(t *testing.T) {
	c := MassifCommand("build/bench_mem_normal", "massif.out")
	want := []string{"--tool=massif", "--stacks=yes", "--time-unit=ms", "--massif-out-file=massif.out", "build/bench_mem_normal", "5000"}
	if c.Path != "valgrind" {
		t.Errorf("want valgrind, got %s", c.Path)
	}
	if got := c.Argv(5000); !reflect.DeepEqual(got, want) {
		t.Errorf("want %q, got %q", want, got)
	}
}

func TestDefaultArtifact(t *testing.T) {
	for _, test := range []struct{ exe, ext, want string }{
		{"build/bench_normal", ".txt", "normal_time_taken.txt"},
		{"./bench_linked_pool", ".txt", "pool_time_taken.txt"},
		{"plain", ".json", "plain_time_taken.json"},
	} {
		if got := DefaultArtifact(test.exe, test.ext); got != test.want {
			t.Errorf("DefaultArtifact(%q, %q): want %q, got %q", test.exe, test.ext, test.want, got)
		}
	}
}

func TestRange(t *testing.T) {
	r, err := Divisions(50, 10)
	if err != nil {
		t.Fatal(err)
	}
	vals, err := r.Values()
	if err != nil {
		t.Fatal(err)
	}
	want := []int{5, 10, 15, 20, 25, 30, 35, 40, 45, 50}
	if !reflect.DeepEqual(vals, want) {
		t.Errorf("Divisions(50, 10): want %v, got %v", want, vals)
	}

	vals, _ = Range{Min: 1, Max: 10, Step: 4}.Values()
	if want := []int{1, 5, 9}; !reflect.DeepEqual(vals, want) {
		t.Errorf("want %v, got %v", want, vals)
	}

	vals, err = Range{Min: math.MaxInt - 5, Max: math.MaxInt, Step: 4}.Values()
	if want := []int{math.MaxInt - 5, math.MaxInt - 1}; err != nil || !reflect.DeepEqual(vals, want) {
		t.Errorf("range ending at MaxInt: want %v, got %v, %v", want, vals, err)
	}
	vals, err = Range{Min: 7, Max: math.MaxInt, Step: math.MaxInt}.Values()
	if want := []int{7}; err != nil || !reflect.DeepEqual(vals, want) {
		t.Errorf("step of MaxInt: want %v, got %v, %v", want, vals, err)
	}

	for _, r := range []Range{{1, 10, 0}, {1, 10, -1}, {10, 1, 1}, {0, math.MaxInt, 1}} {
		if _, err := r.Values(); err == nil {
			t.Errorf("%v: want error", r)
		}
	}
	if _, err := Divisions(5, 10); err == nil {
		t.Errorf("Divisions(5, 10): want error")
	}
	if _, err := Divisions(5, 0); err == nil {
		t.Errorf("Divisions(5, 0): want error")
	}
}

func TestReadPlan(t *testing.T) {
	p, err := ReadPlan(strings.NewReader(`{
		"executable": "build/bench_linked",
		"args": ["{n}", "8"],
		"format": "labeled",
		"labels": ["normally", "with"],
		"limit": 1000,
		"divisions": 4
	}`))
	if err != nil {
		t.Fatal(err)
	}
	want := &Plan{
		Executable: "build/bench_linked",
		Args:       []string{"{n}", "8"},
		Format:     "labeled",
		Labels:     []string{"normally", "with"},
		Limit:      1000,
		Divisions:  4,
	}
	if !reflect.DeepEqual(p, want) {
		t.Errorf("want %+v, got %+v", want, p)
	}
	r, err := p.Range()
	if err != nil {
		t.Fatal(err)
	}
	if want := (Range{250, 1000, 250}); r != want {
		t.Errorf("want range %v, got %v", want, r)
	}
	if got := p.Command().Argv(250); !reflect.DeepEqual(got, []string{"250", "8"}) {
		t.Errorf("want [250 8], got %q", got)
	}
}

func TestDecodePlanErrors(t *testing.T) {
	if _, err := DecodePlan(map[string]any{"executable": "x", "limt": 10}); err == nil {
		t.Errorf("unknown key: want error")
	}
	if _, err := DecodePlan(map[string]any{"limit": "many"}); err == nil {
		t.Errorf("string limit: want error")
	}
	if _, err := ReadPlan(strings.NewReader(`{"limit": 100000.7}`)); err == nil {
		t.Errorf("fractional limit: want error")
	}
	if p, err := ReadPlan(strings.NewReader(`{"limit": 1e5, "overhead": "overheads.txt"}`)); err != nil || p.Limit != 100000 || p.Overhead != "overheads.txt" {
		t.Errorf("integral float limit: want 100000, got %+v, %v", p, err)
	}
	p, err := DecodePlan(map[string]any{"executable": "x"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Range(); err == nil {
		t.Errorf("plan without range: want error")
	}
	p.Limit = 100
	if r, err := p.Range(); err != nil || r != (Range{10, 100, 10}) {
		t.Errorf("default divisions: want 10..100 step 10, got %v, %v", r, err)
	}
}
