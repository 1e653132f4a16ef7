// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report renders aligned series as charts, HTML pages and
// text summaries.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/rpools/poolperf/series"
)

// ErrNoSeries is returned when asked to chart an empty set.
var ErrNoSeries = errors.New("no series to chart")

// ChartOptions controls the size of a rendered chart.
type ChartOptions struct {
	Width       vg.Length // of the whole image
	PanelHeight vg.Length // of each phase's subplot
	DPI         int       // PNG only
}

// DefaultChartOptions are used when a chart is saved with zero options.
var DefaultChartOptions = ChartOptions{
	Width:       24 * vg.Centimeter,
	PanelHeight: 10 * vg.Centimeter,
	DPI:         96,
}

// Plots returns one plot per phase of set, each with a line for every
// series.
func Plots(set *series.Set) ([]*plot.Plot, error) {
	if len(set.Series) == 0 {
		return nil, ErrNoSeries
	}
	plots := make([]*plot.Plot, len(set.Phases))
	for p, phase := range set.Phases {
		pl := plot.New()
		pl.Title.Text = set.Title
		if len(set.Phases) > 1 {
			pl.Title.Text = phase
			if set.Title != "" && p == 0 {
				pl.Title.Text = set.Title + ": " + phase
			}
		}
		pl.X.Label.Text = set.XLabel
		pl.Y.Label.Text = set.YLabel
		pl.Legend.Top = true
		pl.Legend.Left = true
		pl.Add(plotter.NewGrid())

		for i, s := range set.Series {
			if s.Points() == 0 {
				return nil, fmt.Errorf("series %s has no points", s.Label)
			}
			if p >= len(s.Values) || len(s.Values[p]) != len(s.X) {
				return nil, fmt.Errorf("series %s has no %s value for every point", s.Label, phase)
			}
			xys := make(plotter.XYs, len(s.X))
			for j, x := range s.X {
				xys[j].X = x
				xys[j].Y = s.Values[p][j]
			}
			line, points, err := plotter.NewLinePoints(xys)
			if err != nil {
				return nil, fmt.Errorf("series %s: %w", s.Label, err)
			}
			line.Color = plotutil.Color(i)
			points.Color = plotutil.Color(i)
			points.Shape = draw.CircleGlyph{}
			pl.Add(line, points)
			pl.Legend.Add(s.Label, line, points)
		}
		plots[p] = pl
	}
	return plots, nil
}

// WriteChart renders set as stacked subplots, one per phase, and
// writes it to w. format is one of "png", "svg" or "pdf".
func WriteChart(w io.Writer, set *series.Set, format string, opts ChartOptions) error {
	plots, err := Plots(set)
	if err != nil {
		return err
	}
	if opts == (ChartOptions{}) {
		opts = DefaultChartOptions
	}
	height := opts.PanelHeight * vg.Length(len(plots))

	var can vg.CanvasWriterTo
	switch format {
	case "png":
		can = vgimg.PngCanvas{Canvas: vgimg.NewWith(vgimg.UseWH(opts.Width, height),
			vgimg.UseDPI(opts.DPI), vgimg.UseBackgroundColor(color.White))}
	case "svg":
		can = vgsvg.New(opts.Width, height)
	case "pdf":
		can = vgpdf.New(opts.Width, height)
	default:
		return fmt.Errorf("unknown chart format %q", format)
	}

	grid := make([][]*plot.Plot, len(plots))
	for i, pl := range plots {
		grid[i] = []*plot.Plot{pl}
	}
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(8),
		PadY:      vg.Points(12),
	}
	canvases := plot.Align(grid, tiles, draw.New(can))
	for i, pl := range plots {
		pl.Draw(canvases[i][0])
	}
	_, err = can.WriteTo(w)
	return err
}

// SaveChart renders set to the named file. The format is taken from
// the file's extension.
func SaveChart(path string, set *series.Set, opts ChartOptions) error {
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteChart(f, set, format, opts); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
