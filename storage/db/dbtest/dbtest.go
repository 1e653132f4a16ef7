// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dbtest opens empty results databases for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/rpools/poolperf/storage/db"
	_ "github.com/rpools/poolperf/storage/db/sqlite3"
)

// NewDB makes a connection to an in-memory sqlite3 database.
// cleanup must be called when done with the testing database, instead
// of calling db.Close()
func NewDB(t *testing.T) (*db.DB, func()) {
	d, err := db.OpenSQL("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	cleanup := func() {
		if err := d.Close(); err != nil {
			t.Error(err)
		}
	}
	// Make sure the database really is empty.
	sets, err := d.CountSets(context.Background())
	if err != nil {
		cleanup()
		t.Fatal(err)
	}
	if sets != 0 {
		cleanup()
		t.Fatalf("found %d row(s) in Sets, want 0", sets)
	}
	return d, cleanup
}
