// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Massifplot runs memory benchmarks under valgrind's massif tool and
// charts their heap and stack usage over time.
//
// Usage:
//
//	massifplot [flags] [executable...]
//	massifplot [flags] -files massif.out...
//
// Each executable is run once with the object count given by -n as
// its argument. Without arguments, massifplot runs bench_mem_normal,
// bench_mem_linked_set and bench_mem_linked_uset. With -files, the
// arguments are existing massif output files and nothing is run.
//
// The -m flag selects the unit of the Y axis: b for bytes, k for KiB
// or m for MiB.
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

	"github.com/rpools/poolperf/benchunit"
	"github.com/rpools/poolperf/massif"
	"github.com/rpools/poolperf/report"
	"github.com/rpools/poolperf/series"
	"github.com/rpools/poolperf/storage/db/sqlite3"
	"github.com/rpools/poolperf/sweep"
)

var errUsage = errors.New("bad usage")

var defaultExecs = []string{"bench_mem_normal", "bench_mem_linked_set", "bench_mem_linked_uset"}

func main() {
	log.SetPrefix("massifplot: ")
	log.SetFlags(0)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := massifplot(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func massifplot(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	fs := flag.NewFlagSet("massifplot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: massifplot [flags] [executable...]\n")
		fmt.Fprintf(fs.Output(), "       massifplot [flags] -files massif.out...\n")
		fs.PrintDefaults()
	}
	var (
		flagN        = fs.Int("n", 100000, "`number` of allocations passed to each executable")
		flagUnit     = fs.String("m", "k", "memory `unit`: b, k or m")
		flagFiles    = fs.Bool("files", false, "arguments are massif output files")
		flagOutDir   = fs.String("outdir", "", "keep massif output files in `dir`")
		flagValgrind = fs.String("valgrind", "valgrind", "valgrind `command`")
		flagOut      = fs.String("o", "memory_usage.png", "write the chart to `file`; empty for none")
		flagSummary  = fs.Bool("summary", false, "print a summary table")
		flagDB       = fs.String("db", "", "store the series in SQLite database `file`")
		flagName     = fs.String("name", "massif", "`name` of the stored series")
		flagVerbose  = fs.Bool("v", false, "log every run")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	unit, err := benchunit.ParseMemUnit(*flagUnit)
	if err != nil {
		return err
	}
	names := fs.Args()
	if *flagFiles && len(names) == 0 {
		fs.Usage()
		return errUsage
	}
	if len(names) == 0 {
		names = defaultExecs
	}

	var profs []*massif.Profile
	var labels []string
	if *flagFiles {
		for _, name := range names {
			p, err := parseFile(name)
			if err != nil {
				return err
			}
			profs = append(profs, p)
			labels = append(labels, strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
		}
	} else {
		dir := *flagOutDir
		if dir == "" {
			if dir, err = os.MkdirTemp("", "massifplot"); err != nil {
				return err
			}
			defer os.RemoveAll(dir)
		}
		level := slog.LevelWarn
		if *flagVerbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
		for _, exe := range names {
			p, err := profile(ctx, logger, *flagValgrind, exe, dir, *flagN)
			if err != nil {
				return err
			}
			profs = append(profs, p)
			labels = append(labels, filepath.Base(exe))
		}
	}

	set, err := massif.Set(profs, labels, unit)
	if err != nil {
		return err
	}
	if *flagOut != "" {
		if err := report.SaveChart(*flagOut, set, report.DefaultChartOptions); err != nil {
			return err
		}
	}
	if *flagSummary {
		if err := report.WriteSummary(stdout, set); err != nil {
			return err
		}
	}
	if *flagDB != "" {
		ids, err := sqlite3.SaveSets(ctx, *flagDB, []string{*flagName}, []*series.Set{set})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "stored %s as set %d in %s\n", *flagName, ids[0], *flagDB)
	}
	return nil
}

func parseFile(name string) (*massif.Profile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return massif.Parse(f, name)
}

// profile runs exe once under massif and parses its output.
func profile(ctx context.Context, logger *slog.Logger, valgrind, exe, dir string, n int) (*massif.Profile, error) {
	out := filepath.Join(dir, "massif.out."+filepath.Base(exe))
	cmd := sweep.MassifCommand(exe, out)
	cmd.Path = valgrind
	d := &sweep.Driver{Command: cmd, Artifacts: []string{out}, Logger: logger}
	var prof *massif.Profile
	err := d.Sweep(ctx, []int{n}, func(run sweep.Run, data [][]byte) error {
		p, err := massif.Parse(bytes.NewReader(data[0]), run.Artifacts[0])
		if err != nil {
			return &sweep.ParseError{Err: err}
		}
		prof = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("profiled", slog.String("executable", exe), slog.Int("snapshots", len(prof.Snapshots)), slog.Int("n", n))
	return prof, nil
}
