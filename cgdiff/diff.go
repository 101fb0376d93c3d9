// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cgdiff compares the counter tables of two profiles.
//
// For a chosen event, every instruction key gets a row holding the
// baseline count, the candidate count, their difference and that
// difference as a percentage of the baseline program total. A final
// PROGRAM TOTALS row compares the two program totals.
package cgdiff

import (
	"fmt"
	"math"
	"sort"

	"github.com/aclements/go-moremath/stats"

	"github.com/grpc/cgperf/cgcount"
)

// DefaultEvent is the event compared when Options.Event is empty.
const DefaultEvent = "Ir"

// TotalsName is the name of the whole-program row.
const TotalsName = "PROGRAM TOTALS"

// A Column selects the value rows are sorted by.
type Column int

const (
	ByBaseline  Column = iota // baseline count ("file1")
	ByCandidate               // candidate count ("file2")
	ByDelta                   // candidate minus baseline ("delta")
)

var columnNames = []string{"file1", "file2", "delta"}

func (c Column) String() string {
	if c < 0 || int(c) >= len(columnNames) {
		return fmt.Sprintf("Column(%d)", int(c))
	}
	return columnNames[c]
}

// ParseColumn returns the Column named s: "file1", "file2" or "delta".
func ParseColumn(s string) (Column, error) {
	for i, name := range columnNames {
		if s == name {
			return Column(i), nil
		}
	}
	return 0, fmt.Errorf("unknown sort column %q (want file1, file2 or delta)", s)
}

func (c Column) value(r *Row) int64 {
	switch c {
	case ByCandidate:
		return r.Candidate
	case ByDelta:
		return r.Delta
	}
	return r.Baseline
}

// Options control Compare.
type Options struct {
	// Event is the event to compare. If empty, DefaultEvent is used.
	Event string

	// Sort is the column to sort rows by. Rows are sorted in
	// descending order unless Ascending is set.
	Sort      Column
	Ascending bool

	// OnlyCommon restricts the rows to keys present in both tables.
	// By default, all keys of either table are reported.
	OnlyCommon bool

	// LowWatermark is the minimum absolute percentage change for a
	// row to be reported. It applies to the PROGRAM TOTALS row too.
	LowWatermark float64

	// GeoMean requests the geometric mean of candidate/baseline
	// ratios.
	GeoMean bool
}

// A Row compares one instruction key, or the whole program.
type Row struct {
	Name      string
	Baseline  int64
	Candidate int64
	Delta     int64
	// Percent is Delta as a percentage of the baseline program
	// total. If that total is 0, Percent is ±Inf, or 0 when Delta
	// is 0.
	Percent float64
	// Totals is set on the PROGRAM TOTALS row.
	Totals bool
}

// A GeoMeanRatio summarizes candidate/baseline ratios over the keys
// that have non-zero counts in both tables.
type GeoMeanRatio struct {
	Ratio float64 // NaN if N is 0
	N     int     // number of keys contributing
}

// A Report is the result of Compare.
type Report struct {
	Event string

	// Rows are the reported rows, sorted and filtered.
	Rows []*Row

	// Totals is the PROGRAM TOTALS row. It also appears in Rows
	// unless it was filtered out.
	Totals *Row

	// Suppressed counts the rows dropped by the low watermark.
	Suppressed int

	// GeoMean is set if Options.GeoMean was set.
	GeoMean *GeoMeanRatio
}

// Percent returns delta as a percentage of total.
func Percent(delta, total int64) float64 {
	if total == 0 {
		switch {
		case delta > 0:
			return math.Inf(1)
		case delta < 0:
			return math.Inf(-1)
		}
		return 0
	}
	return 100 * float64(delta) / float64(total)
}

// Keys returns the sorted union of the keys of a and b, or their
// intersection if onlyCommon is set.
func Keys(a, b *cgcount.Table, onlyCommon bool) []string {
	var keys []string
	for _, k := range a.Keys() {
		if !onlyCommon || b.Has(k) {
			keys = append(keys, k)
		}
	}
	if !onlyCommon {
		for _, k := range b.Keys() {
			if !a.Has(k) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
	}
	return keys
}

// Rows returns one row per key of Keys(a, b, onlyCommon), in key
// order, followed by the PROGRAM TOTALS row.
func Rows(a, b *cgcount.Table, event string, onlyCommon bool) ([]*Row, error) {
	totalA, err := a.AggregateByEvent(event)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	totalB, err := b.AggregateByEvent(event)
	if err != nil {
		return nil, fmt.Errorf("candidate: %w", err)
	}
	row := func(name string, ca, cb int64) *Row {
		delta := cb - ca
		return &Row{Name: name, Baseline: ca, Candidate: cb, Delta: delta, Percent: Percent(delta, totalA)}
	}

	keys := Keys(a, b, onlyCommon)
	rows := make([]*Row, 0, len(keys)+1)
	for _, k := range keys {
		// The event was found above, so Count cannot fail.
		ca, _ := a.Count(k, event)
		cb, _ := b.Count(k, event)
		rows = append(rows, row(k, ca, cb))
	}
	totals := row(TotalsName, totalA, totalB)
	totals.Totals = true
	return append(rows, totals), nil
}

// SortRows sorts rows by column c, descending unless ascending is
// set. Rows with equal values keep their relative order.
func SortRows(rows []*Row, c Column, ascending bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		vi, vj := c.value(rows[i]), c.value(rows[j])
		if ascending {
			return vi < vj
		}
		return vi > vj
	})
}

// Compare compares baseline table a with candidate table b.
func Compare(a, b *cgcount.Table, opts Options) (*Report, error) {
	event := opts.Event
	if event == "" {
		event = DefaultEvent
	}
	rows, err := Rows(a, b, event, opts.OnlyCommon)
	if err != nil {
		return nil, err
	}
	r := &Report{Event: event, Totals: rows[len(rows)-1]}

	SortRows(rows, opts.Sort, opts.Ascending)
	for _, row := range rows {
		if math.Abs(row.Percent) < opts.LowWatermark {
			r.Suppressed++
			continue
		}
		r.Rows = append(r.Rows, row)
	}

	if opts.GeoMean {
		r.GeoMean = geoMean(a, b, event)
	}
	return r, nil
}

func geoMean(a, b *cgcount.Table, event string) *GeoMeanRatio {
	var ratios []float64
	for _, k := range Keys(a, b, true) {
		ca, _ := a.Count(k, event)
		cb, _ := b.Count(k, event)
		if ca <= 0 || cb <= 0 {
			continue
		}
		ratios = append(ratios, float64(cb)/float64(ca))
	}
	if len(ratios) == 0 {
		return &GeoMeanRatio{Ratio: math.NaN()}
	}
	return &GeoMeanRatio{Ratio: stats.GeoMean(ratios), N: len(ratios)}
}

// A Summary compares only the program totals of two tables.
type Summary struct {
	Event string

	// BaselineName and CandidateName label the totals in
	// FormatText. The caller sets them.
	BaselineName, CandidateName string

	Baseline, Candidate, Delta int64
	Percent                    float64
}

// Summarize compares the program totals of event in a and b.
func Summarize(a, b *cgcount.Table, event string) (*Summary, error) {
	if event == "" {
		event = DefaultEvent
	}
	totalA, err := a.AggregateByEvent(event)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	totalB, err := b.AggregateByEvent(event)
	if err != nil {
		return nil, fmt.Errorf("candidate: %w", err)
	}
	delta := totalB - totalA
	return &Summary{
		Event:     event,
		Baseline:  totalA,
		Candidate: totalB,
		Delta:     delta,
		Percent:   Percent(delta, totalA),
	}, nil
}
