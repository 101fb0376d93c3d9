// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgchart

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/grpc/cgperf/cgdiff"
)

func report() *cgdiff.Report {
	totals := &cgdiff.Row{Name: cgdiff.TotalsName, Baseline: 100, Candidate: 90, Delta: -10, Percent: -10, Totals: true}
	return &cgdiff.Report{
		Event: "Ir",
		Rows: []*cgdiff.Row{
			totals,
			{Name: "a.c:f", Baseline: 50, Candidate: 30, Delta: -20, Percent: -20},
			{Name: "b.c:g", Baseline: 40, Candidate: 45, Delta: 5, Percent: 5},
			{Name: "c.c:h", Baseline: 10, Candidate: 15, Delta: 5, Percent: 5},
			{Name: "d.c:i", Baseline: 0, Candidate: 0, Delta: 0, Percent: math.Inf(1)},
		},
		Totals: totals,
	}
}

func TestTop(t *testing.T) {
	var names []string
	for _, row := range Top(report(), 2) {
		names = append(names, row.Name)
	}
	if len(names) != 2 || names[0] != "a.c:f" || names[1] != "b.c:g" {
		t.Errorf("Top(2) = %v, want [a.c:f b.c:g]", names)
	}
	if n := len(Top(report(), 10)); n != 3 {
		t.Errorf("Top(10) returned %d rows, want 3", n)
	}
}

func TestWrite(t *testing.T) {
	for _, test := range []struct {
		format string
		magic  []byte
	}{
		{"png", []byte("\x89PNG")},
		{"svg", []byte("<?xml")},
		{"pdf", []byte("%PDF")},
	} {
		var buf bytes.Buffer
		if err := Write(&buf, report(), 10, test.format); err != nil {
			t.Fatalf("%s: %v", test.format, err)
		}
		if !bytes.HasPrefix(buf.Bytes(), test.magic) {
			t.Errorf("%s output starts with %q", test.format, buf.Bytes()[:min(8, buf.Len())])
		}
	}
	if err := Write(new(bytes.Buffer), report(), 10, "gif"); err == nil {
		t.Errorf("gif format succeeded")
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chart.png")
	if err := WriteFile(path, report(), 5); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Errorf("chart file: %v, %v", fi, err)
	}

	bad := filepath.Join(dir, "chart.bmp")
	if err := WriteFile(bad, report(), 5); err == nil {
		t.Errorf("bmp chart succeeded")
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Errorf("failed chart left a file behind")
	}
}

func TestNoRows(t *testing.T) {
	r := report()
	r.Rows = r.Rows[:1]
	if _, err := New(r, 10); err == nil {
		t.Errorf("chart of totals only succeeded")
	}
}
