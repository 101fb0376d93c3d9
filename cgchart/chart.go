// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cgchart draws bar charts of the largest changes in a
// cgdiff.Report.
package cgchart

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/grpc/cgperf/cgdiff"
)

var (
	worse  = color.RGBA{R: 0xcc, A: 0xff}
	better = color.RGBA{G: 0x99, A: 0xff}
)

// Top returns up to n rows of r with the largest absolute percentage
// change. The PROGRAM TOTALS row and rows with an infinite percentage
// are left out.
func Top(r *cgdiff.Report, n int) []*cgdiff.Row {
	var rows []*cgdiff.Row
	for _, row := range r.Rows {
		if row.Totals || math.IsInf(row.Percent, 0) {
			continue
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return math.Abs(rows[i].Percent) > math.Abs(rows[j].Percent)
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// New builds a plot of the percentage change of the top n rows of r.
func New(r *cgdiff.Report, n int) (*plot.Plot, error) {
	rows := Top(r, n)
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows to chart")
	}

	// Increases and decreases are drawn as two overlaid bar sets so
	// they can be colored differently.
	up := make(plotter.Values, len(rows))
	down := make(plotter.Values, len(rows))
	names := make([]string, len(rows))
	for i, row := range rows {
		if row.Percent > 0 {
			up[i] = row.Percent
		} else {
			down[i] = row.Percent
		}
		names[i] = row.Name
	}

	pl := plot.New()
	pl.Title.Text = r.Event
	pl.Y.Label.Text = "% of baseline total"

	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	pl.Add(grid)

	w := vg.Points(20)
	for _, set := range []struct {
		vals plotter.Values
		clr  color.Color
	}{{up, worse}, {down, better}} {
		bars, err := plotter.NewBarChart(set.vals, w)
		if err != nil {
			return nil, err
		}
		bars.Color = set.clr
		bars.LineStyle.Width = 0
		pl.Add(bars)
	}
	pl.NominalX(names...)

	pl.X.Tick.Label.Rotation = -math.Pi / 8
	pl.X.Tick.Label.YAlign = draw.YTop
	pl.X.Tick.Label.XAlign = draw.XLeft

	// Keep the zero line on the chart.
	if pl.Y.Min > 0 {
		pl.Y.Min = 0
	}
	if pl.Y.Max < 0 {
		pl.Y.Max = 0
	}
	return pl, nil
}

// size returns a heuristic canvas size for a chart of n bars.
func size(n int) (width, height vg.Length) {
	width = vg.Length(4+1.5*float64(n)) * vg.Centimeter
	height = 12 * vg.Centimeter
	return
}

// Write draws a chart of the top n rows of r to w. format is "png",
// "svg" or "pdf".
func Write(w io.Writer, r *cgdiff.Report, n int, format string) error {
	pl, err := New(r, n)
	if err != nil {
		return err
	}
	width, height := size(len(Top(r, n)))

	var can vg.CanvasWriterTo
	switch format {
	case "png":
		can = vgimg.PngCanvas{Canvas: vgimg.NewWith(vgimg.UseWH(width, height),
			vgimg.UseDPI(150), vgimg.UseBackgroundColor(color.White))}
	case "svg":
		can = vgsvg.New(width, height)
	case "pdf":
		can = vgpdf.New(width, height)
	default:
		return fmt.Errorf("unsupported chart format %q (want png, svg or pdf)", format)
	}
	pl.Draw(draw.New(can))
	_, err = can.WriteTo(w)
	return err
}

// WriteFile draws a chart of the top n rows of r to the named file,
// choosing the format from the file extension.
func WriteFile(path string, r *cgdiff.Report, n int) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, r, n, format); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
