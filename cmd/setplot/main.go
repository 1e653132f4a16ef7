// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Setplot lists and charts the series sets stored with -db by
// elapsedplot, massifplot and snapplot.
//
// Usage:
//
//	setplot -db file [-name name]
//	setplot -db file -id id [-o chart.png] [-summary]
//	setplot -db file -delete id
//
// Without -id or -delete, setplot lists the stored sets.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/aclements/go-gg/table"

	"github.com/rpools/poolperf/report"
	"github.com/rpools/poolperf/storage/db/sqlite3"
)

var errUsage = errors.New("bad usage")

func main() {
	log.SetPrefix("setplot: ")
	log.SetFlags(0)
	err := setplot(context.Background(), os.Stdout, os.Stderr, os.Args[1:])
	if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func setplot(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	fs := flag.NewFlagSet("setplot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: setplot -db file [-name name | -id id | -delete id]\n")
		fs.PrintDefaults()
	}
	var (
		flagDB      = fs.String("db", "", "SQLite database `file`")
		flagName    = fs.String("name", "", "list only sets stored under `name`")
		flagID      = fs.Int64("id", 0, "chart the set with this `id`")
		flagDelete  = fs.Int64("delete", 0, "delete the set with this `id`")
		flagOut     = fs.String("o", "set.png", "write the chart to `file`; empty for none")
		flagSummary = fs.Bool("summary", false, "print a summary table")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *flagDB == "" || fs.NArg() != 0 || (*flagID != 0 && *flagDelete != 0) {
		fs.Usage()
		return errUsage
	}
	if _, err := os.Stat(*flagDB); err != nil {
		return err
	}
	d, err := sqlite3.Open(*flagDB)
	if err != nil {
		return err
	}
	defer d.Close()

	switch {
	case *flagDelete != 0:
		return d.DeleteSet(ctx, *flagDelete)
	case *flagID != 0:
		set, err := d.LoadSet(ctx, *flagID)
		if err != nil {
			return err
		}
		if *flagOut != "" {
			if err := report.SaveChart(*flagOut, set, report.DefaultChartOptions); err != nil {
				return err
			}
		}
		if *flagSummary {
			return report.WriteSummary(stdout, set)
		}
		return nil
	}

	infos, err := d.ListSets(ctx, *flagName)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return nil
	}
	var (
		ids, counts          []int
		names, titles, dates []string
	)
	for _, info := range infos {
		ids = append(ids, int(info.ID))
		names = append(names, info.Name)
		titles = append(titles, info.Title)
		counts = append(counts, info.Series)
		dates = append(dates, info.Created.UTC().Format("2006-01-02 15:04:05"))
	}
	tbl := table.NewBuilder(nil).
		Add("id", ids).
		Add("name", names).
		Add("series", counts).
		Add("created", dates).
		Add("title", titles).
		Done()
	return table.Fprint(stdout, tbl)
}
