// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package texttab lays out fixed-width text tables.
package texttab

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Table does layout of text-based tables.
//
// Many of its methods return the Table so callers can easily chain
// them to build up many cells at once.
type Table struct {
	rows [][]cell
	cols int

	// sep is the default left margin of every column but the first.
	sep string
}

type cell struct {
	value      string
	leftMargin string
	alignment  align
	minWidth   int
}

// New returns an empty table whose columns are separated by sep.
func New(sep string) *Table {
	return &Table{sep: sep}
}

type CellOption func(c *cell)

// LeftMargin overrides the column separator to the left of a cell.
func LeftMargin(x string) CellOption {
	return func(c *cell) {
		c.leftMargin = x
	}
}

// MinWidth pads a cell's column to at least w characters.
func MinWidth(w int) CellOption {
	return func(c *cell) {
		c.minWidth = w
	}
}

var (
	Left  CellOption = func(c *cell) { c.alignment = alignLeft }
	Right CellOption = func(c *cell) { c.alignment = alignRight }
)

type align int

const (
	alignLeft align = iota
	alignRight
)

func (a align) pad(s string, w int) string {
	if a == alignRight {
		return fmt.Sprintf("%*s", w, s)
	}
	return s
}

// Row starts a new row in table t.
func (t *Table) Row() *Table {
	t.rows = append(t.rows, nil)
	return t
}

// Rows returns the number of rows in t.
func (t *Table) Rows() int {
	return len(t.rows)
}

// Cell adds a cell at the end of the current row.
func (t *Table) Cell(value string, opts ...CellOption) *Table {
	if len(t.rows) == 0 {
		t.Row()
	}
	r := &t.rows[len(t.rows)-1]
	c := cell{value: value}
	if len(*r) > 0 {
		c.leftMargin = t.sep
	}
	for _, o := range opts {
		o(&c)
	}
	*r = append(*r, c)
	if len(*r) > t.cols {
		t.cols = len(*r)
	}
	return t
}

// Format lays out table t and writes it to w. Cells in the same column
// share the width of the widest cell (or the largest MinWidth) and the
// widest left margin of that column.
func (t *Table) Format(w io.Writer) error {
	lmargin := make([]int, t.cols)
	ws := make([]int, t.cols)
	for _, row := range t.rows {
		for col, c := range row {
			lmargin[col] = max(lmargin[col], utf8.RuneCountInString(c.leftMargin))
			ws[col] = max(ws[col], utf8.RuneCountInString(c.value), c.minWidth)
		}
	}

	var line strings.Builder
	for _, row := range t.rows {
		line.Reset()
		for col, c := range row {
			fmt.Fprintf(&line, "%*s", lmargin[col], c.leftMargin)
			line.WriteString(c.alignment.pad(c.value, ws[col]))
			if col < len(row)-1 && c.alignment == alignLeft {
				// Pad left-aligned cells unless they end the row.
				fmt.Fprintf(&line, "%*s", ws[col]-utf8.RuneCountInString(c.value), "")
			}
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}
