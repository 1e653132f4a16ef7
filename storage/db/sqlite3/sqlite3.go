// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite3 provides the sqlite3 driver for
// github.com/rpools/poolperf/storage/db.OpenSQL. It must be imported
// instead of go-sqlite3 to ensure foreign keys are properly honored.
package sqlite3

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rpools/poolperf/series"
	"github.com/rpools/poolperf/storage/db"
)

func init() {
	db.RegisterOpenHook("sqlite3", func(db *sql.DB) error {
		// A ":memory:" database exists per connection, and
		// foreign_keys is a per-connection setting.
		db.SetMaxOpenConns(1)
		_, err := db.Exec("PRAGMA foreign_keys = ON")
		return err
	})
}

// Open opens the results database in the named file, creating it if
// it does not exist.
func Open(path string) (*db.DB, error) {
	d, err := db.OpenSQL("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// SaveSets stores sets in the database file path, the i'th under
// names[i], and returns their IDs.
func SaveSets(ctx context.Context, path string, names []string, sets []*series.Set) ([]int64, error) {
	if len(names) != len(sets) {
		return nil, fmt.Errorf("%d names for %d sets", len(names), len(sets))
	}
	d, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	ids := make([]int64, len(sets))
	for i, set := range sets {
		if ids[i], err = d.InsertSet(ctx, names[i], set); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", path, names[i], err)
		}
	}
	return ids, nil
}
