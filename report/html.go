// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"fmt"
	"io"

	"github.com/google/safehtml/template"

	"github.com/rpools/poolperf/allocsnap"
)

var snapshotTemplate = template.Must(template.New("snapshots").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Object allocations</title>
<style>
body { font-family: sans-serif; }
table { border-collapse: collapse; }
th, td { border: 1px solid #aaa; padding: 0.2em 0.6em; }
td.num { text-align: right; }
</style>
</head>
<body>
<h1>Object allocations</h1>
<p>{{.Snapshots}} snapshots, {{len .Types}} types, {{len .Functions}} allocating functions.</p>
<h2>Types</h2>
<ul>
{{range .Types}}<li>{{.}}</li>
{{end}}</ul>
<h2>Functions</h2>
<ul>
{{range .Functions}}<li>{{.}}</li>
{{end}}</ul>
<table>
<tr><th>Snapshot</th><th>Type Name</th><th>Alignment</th><th>Size of allocation</th><th>Currently allocated</th><th>Peak</th><th>Allocated in</th></tr>
{{range .Rows}}<tr><td class="num">{{.Snapshot}}</td><td>{{.Type}}</td><td class="num">{{.Alignment}}</td><td class="num">{{.Size}}</td><td class="num">{{.Current}}</td><td class="num">{{.Peak}}</td><td>{{.Function}}</td></tr>
{{end}}</table>
</body>
</html>
`))

// A SnapshotPage is the content of the HTML allocation report.
type SnapshotPage struct {
	Snapshots int // non-sentinel snapshots
	Types     []string
	Functions []string
	Rows      []allocsnap.Row
}

// NewSnapshotPage collects every record of snaps into a page.
// It fails with allocsnap.ErrEmptyInput if there are no records.
func NewSnapshotPage(snaps []allocsnap.Snapshot) (*SnapshotPage, error) {
	rows := allocsnap.Rows(snaps)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %d snapshots", allocsnap.ErrEmptyInput, len(snaps))
	}
	types, funcs := allocsnap.Registry(snaps)
	return &SnapshotPage{
		Snapshots: allocsnap.Visible(snaps),
		Types:     types,
		Functions: funcs,
		Rows:      rows,
	}, nil
}

// WriteHTML writes page to w as an HTML document.
func WriteHTML(w io.Writer, page *SnapshotPage) error {
	return snapshotTemplate.Execute(w, page)
}
