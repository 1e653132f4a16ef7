// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Elapsedplot sweeps an allocator benchmark over a range of object
// counts and charts how long each implementation takes.
//
// Usage:
//
//	elapsedplot [flags] executable [args...]
//
// The executable is run once per sweep value. Every occurrence of
// "{n}" in args is replaced by the value; if there is none, the value
// is passed as the first argument. After each run, elapsedplot reads
// the artifact the benchmark wrote, by default the last
// '_'-separated part of the executable's name followed by
// "_time_taken.txt", for example normal_time_taken.txt for
// bench_normal.
//
// The -format flag selects the artifact format:
//
//	text      lines "<anything> <ms> ms", alternating allocation and deallocation
//	labeled   lines "Allocate Obj <name>: <ms> ms", labeled by implementation
//	json      {"allocators": {<name>: {"allocation_time": ..., "deallocation_time": ...}}}
//	overhead  lines "<anything> <bytes>", one value per implementation
//
// A line "Allocating <count> objects." in a text artifact sets the X
// coordinate of the run to the reported count.
//
// With -overhead, every run also writes an overhead artifact (lines
// "<anything> <bytes>", one per implementation). It is read after the
// same invocation as the timing artifact, and its series share the
// timing labels and X coordinates. It is charted separately, to the
// file named by -overhead-o.
//
// The sweep runs limit/d, 2·limit/d, ..., limit objects, where limit
// is given by -n and d by -divisions. Alternatively -min, -max and
// -step give the range explicitly. Settings may also be read from a
// JSON file with -plan; flags given on the command line take
// precedence. For example:
//
//	{
//	  "executable": "./build/test_linked_pool/test_normal",
//	  "format": "text",
//	  "limit": 100000
//	}
//
// The chart is written to the file named by -o; its format (png, svg
// or pdf) follows the file extension. -summary prints per-series
// statistics, and -db stores the series in a SQLite database for
// later use with setplot.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/rpools/poolperf/elapsed"
	"github.com/rpools/poolperf/report"
	"github.com/rpools/poolperf/series"
	"github.com/rpools/poolperf/storage/db/sqlite3"
	"github.com/rpools/poolperf/sweep"
)

var errUsage = errors.New("bad usage")

func main() {
	log.SetPrefix("elapsedplot: ")
	log.SetFlags(0)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := elapsedplot(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// An artifactFormat describes how to read one kind of artifact.
type artifactFormat struct {
	ext    string
	layout series.Layout
	title  string
	yLabel string
	phases []string
	parse  func(r io.Reader, fileName string) (*elapsed.Result, error)
}

func textFormat(f elapsed.Format) func(io.Reader, string) (*elapsed.Result, error) {
	return func(r io.Reader, fileName string) (*elapsed.Result, error) {
		return elapsed.Parse(r, fileName, f)
	}
}

var formats = map[string]artifactFormat{
	"text":     {".txt", series.Interleaved, "Elapsed time", "milliseconds (ms)", nil, textFormat(elapsed.Text)},
	"labeled":  {".txt", series.Interleaved, "Elapsed time", "milliseconds (ms)", nil, textFormat(elapsed.Labeled)},
	"json":     {".json", series.Interleaved, "Elapsed time", "milliseconds (ms)", nil, elapsed.ParseJSON},
	"overhead": overhead,
}

var overhead = artifactFormat{".txt", series.Single, "Memory overhead", "bytes", []string{"Overhead"}, textFormat(elapsed.Overhead)}

func elapsedplot(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	fs := flag.NewFlagSet("elapsedplot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: elapsedplot [flags] executable [args...]\n")
		fs.PrintDefaults()
	}
	var (
		flagPlan      = fs.String("plan", "", "read sweep settings from JSON `file`")
		flagFormat    = fs.String("format", "text", "artifact `format`: text, labeled, json or overhead")
		flagLayout    = fs.String("layout", "", "row `layout`: interleaved, grouped or single (default depends on -format)")
		flagLabels    = fs.String("labels", "", "comma-separated implementation `names`")
		flagArtifact  = fs.String("artifact", "", "`file` written by the benchmark (default derived from the executable name)")
		flagOverhead  = fs.String("overhead", "", "overhead artifact `file` also written by each run")
		flagOverOut   = fs.String("overhead-o", "memory_overhead.png", "write the overhead chart to `file`; empty for none")
		flagN         = fs.Int("n", 100000, "upper `bound` of the number of allocations")
		flagDivisions = fs.Int("divisions", 10, "`number` of runs between 0 and -n")
		flagMin       = fs.Int("min", 0, "first sweep `value` (with -step)")
		flagMax       = fs.Int("max", 0, "last sweep `value` (with -step)")
		flagStep      = fs.Int("step", 0, "sweep `increment`; overrides -n and -divisions")
		flagOut       = fs.String("o", "elapsed_time.png", "write the chart to `file`; empty for none")
		flagSummary   = fs.Bool("summary", false, "print a summary table")
		flagDB        = fs.String("db", "", "store the series in SQLite database `file`")
		flagName      = fs.String("name", "", "`name` of the stored series (default executable base name)")
		flagQuiet     = fs.Bool("q", false, "do not show progress")
		flagVerbose   = fs.Bool("v", false, "log every run")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	plan := new(sweep.Plan)
	if *flagPlan != "" {
		var err error
		if plan, err = sweep.LoadPlan(*flagPlan); err != nil {
			return err
		}
	} else {
		plan.Limit, plan.Divisions = *flagN, *flagDivisions
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			plan.Format = *flagFormat
		case "layout":
			plan.Layout = *flagLayout
		case "labels":
			plan.Labels = splitList(*flagLabels)
		case "artifact":
			plan.Artifact = *flagArtifact
		case "overhead":
			plan.Overhead = *flagOverhead
		case "n":
			plan.Limit, plan.Step = *flagN, 0
		case "divisions":
			plan.Divisions = *flagDivisions
		case "min":
			plan.Min = *flagMin
		case "max":
			plan.Max = *flagMax
		case "step":
			plan.Step = *flagStep
		}
	})
	if fs.NArg() > 0 {
		plan.Executable, plan.Args = fs.Arg(0), fs.Args()[1:]
	}
	if plan.Executable == "" {
		fs.Usage()
		return errUsage
	}
	if plan.Format == "" {
		plan.Format = *flagFormat
	}

	af, ok := formats[plan.Format]
	if !ok {
		return fmt.Errorf("unknown artifact format %q", plan.Format)
	}
	layout := af.layout
	if plan.Layout != "" {
		var err error
		if layout, err = series.ParseLayout(plan.Layout); err != nil {
			return err
		}
	}
	if plan.Artifact == "" {
		plan.Artifact = sweep.DefaultArtifact(plan.Executable, af.ext)
	}
	rng, err := plan.Range()
	if err != nil {
		return err
	}
	values, err := rng.Values()
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if *flagVerbose {
		level = slog.LevelDebug
	}
	d := &sweep.Driver{
		Command:   plan.Command(),
		Artifacts: []string{plan.Artifact},
		Logger:    slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
	}
	if plan.Overhead != "" {
		d.Artifacts = append(d.Artifacts, plan.Overhead)
	}
	if !*flagQuiet {
		d.Progress = stderr
	}

	phases := af.phases
	if phases != nil && layout.Phases() != len(phases) {
		phases = nil
	}
	al := &series.Aligner{Layout: layout, Labels: plan.Labels, Phases: phases}
	oal := &series.Aligner{Layout: overhead.layout, Phases: overhead.phases}
	err = d.Sweep(ctx, values, func(run sweep.Run, data [][]byte) error {
		res, err := af.parse(bytes.NewReader(data[0]), run.Artifacts[0])
		if err != nil {
			return &sweep.ParseError{Err: err}
		}
		x := float64(run.Value)
		if res.HasCount {
			x = float64(res.Count)
		}
		if err := al.Append(series.Run{Index: run.Index, X: x, Row: res.Row(), Labels: res.Labels()}); err != nil {
			return err
		}
		if len(data) < 2 {
			return nil
		}
		ores, err := overhead.parse(bytes.NewReader(data[1]), run.Artifacts[1])
		if err != nil {
			return &sweep.ParseError{Err: err}
		}
		// Overhead lines carry no labels; they name the same
		// implementations as the timing lines.
		return oal.Append(series.Run{Index: run.Index, X: x, Row: ores.Row(), Labels: al.Schema().Labels()})
	})
	if err != nil {
		return err
	}
	sets := []*series.Set{al.Set(af.title, "number of objects", af.yLabel)}
	if plan.Overhead != "" {
		sets = append(sets, oal.Set(overhead.title, "number of objects", overhead.yLabel))
	}

	charts := []string{*flagOut, *flagOverOut}
	for i, set := range sets {
		if charts[i] == "" {
			continue
		}
		if err := report.SaveChart(charts[i], set, report.DefaultChartOptions); err != nil {
			return err
		}
	}
	if *flagSummary {
		for i, set := range sets {
			if i > 0 {
				fmt.Fprintln(stdout)
			}
			if err := report.WriteSummary(stdout, set); err != nil {
				return err
			}
		}
	}
	if *flagDB != "" {
		name := *flagName
		if name == "" {
			name = filepath.Base(plan.Executable)
		}
		names := []string{name, name + "-overhead"}[:len(sets)]
		ids, err := sqlite3.SaveSets(ctx, *flagDB, names, sets)
		if err != nil {
			return err
		}
		for i, id := range ids {
			fmt.Fprintf(stdout, "stored %s as set %d in %s\n", names[i], id, *flagDB)
		}
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
