// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Snapplot charts the per-type allocation snapshots written by the
// instrumented allocation operators.
//
// Usage:
//
//	snapplot [flags] file
//
// The file holds one snapshot every 100ms. Only (type, alignment,
// size) keys whose final peak reaches the -t threshold are charted.
// With -html, snapplot also writes a page listing every record of
// every snapshot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/rpools/poolperf/allocsnap"
	"github.com/rpools/poolperf/report"
	"github.com/rpools/poolperf/series"
	"github.com/rpools/poolperf/storage/db/sqlite3"
)

var errUsage = errors.New("bad usage")

func main() {
	log.SetPrefix("snapplot: ")
	log.SetFlags(0)
	err := snapplot(os.Stdout, os.Stderr, os.Args[1:])
	if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func snapplot(stdout, stderr io.Writer, args []string) error {
	fs := flag.NewFlagSet("snapplot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: snapplot [flags] file\n")
		fs.PrintDefaults()
	}
	var (
		flagFile      = fs.String("f", "", "snapshot `file` (instead of an argument)")
		flagThreshold = fs.Int64("t", 10, "omit keys whose peak is below `count`")
		flagOut       = fs.String("o", "object_snapshots.png", "write the chart to `file`; empty for none")
		flagHTML      = fs.String("html", "", "write an HTML report of all records to `file`")
		flagSummary   = fs.Bool("summary", false, "print a summary table")
		flagDB        = fs.String("db", "", "store the series in SQLite database `file`")
		flagName      = fs.String("name", "snapshots", "`name` of the stored series")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	file := *flagFile
	if fs.NArg() == 1 && file == "" {
		file = fs.Arg(0)
	} else if fs.NArg() != 0 || file == "" {
		fs.Usage()
		return errUsage
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	snaps, err := allocsnap.Decode(f, file)
	f.Close()
	if err != nil {
		return err
	}

	if *flagHTML != "" {
		page, err := report.NewSnapshotPage(snaps)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		if err := writeHTML(*flagHTML, page); err != nil {
			return err
		}
	}

	red, err := allocsnap.Reduce(snaps, *flagThreshold)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	set := red.Set()
	if *flagOut != "" {
		if err := report.SaveChart(*flagOut, set, report.DefaultChartOptions); err != nil {
			return err
		}
	}
	if *flagSummary {
		fmt.Fprintf(stdout, "%d snapshots, %d types, %d functions\n", red.Snapshots, len(red.Types), len(red.Functions))
		if err := report.WriteSummary(stdout, set); err != nil {
			return err
		}
	}
	if *flagDB != "" {
		ids, err := sqlite3.SaveSets(context.Background(), *flagDB, []string{*flagName}, []*series.Set{set})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "stored %s as set %d in %s\n", *flagName, ids[0], *flagDB)
	}
	return nil
}

func writeHTML(path string, page *report.SnapshotPage) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteHTML(f, page); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
