// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package allocsnap

// A Row is one line of the tabular report: a record as of one
// snapshot.
type Row struct {
	Snapshot int
	Key
	Record
}

// Rows flattens snaps into report rows ordered by snapshot and key.
// Sentinel snapshots contribute no rows.
func Rows(snaps []Snapshot) []Row {
	var rows []Row
	for i, s := range snaps {
		for _, k := range s.Keys() {
			rec, _ := s.Lookup(k)
			rows = append(rows, Row{Snapshot: i, Key: k, Record: rec})
		}
	}
	return rows
}
