// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgfmt

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/grpc/cgperf/cgcount"
)

// tableMap flattens t for comparisons.
func tableMap(t *cgcount.Table) map[string][]int64 {
	m := make(map[string][]int64)
	for _, k := range t.Keys() {
		m[k] = t.Counts(k)
	}
	return m
}

func mustParse(t *testing.T, data string) *Profile {
	t.Helper()
	p, err := Parse(strings.NewReader(data), "test")
	if err != nil {
		t.Fatalf("parsing failed: %v", err)
	}
	return p
}

func TestParse(t *testing.T) {
	for _, test := range []struct {
		name, input string
		events      []string
		want        map[string][]int64
	}{
		{
			"basic",
			`desc: I1 cache: 32768 B, 64 B, 8-way associative
cmd: ./a.out
events: Ir Dr
fl=a.c
fn=foo
1 10 2
summary: 10 2
`,
			[]string{"Ir", "Dr"},
			map[string][]int64{"a.c:foo": {10, 2}},
		},
		{
			"accumulate",
			`events: Ir
fl=a.c
fn=foo
1 10
2 20
fl=a.c
fn=foo
7 5
summary: 35
`,
			[]string{"Ir"},
			map[string][]int64{"a.c:foo": {35}},
		},
		{
			// A context line after a cost line forgets the
			// other half of the key.
			"reset after counts",
			`events: Ir
fl=a.c
fn=f
1 1
fn=g
2 2
fl=b.c
3 3
`,
			[]string{"Ir"},
			map[string][]int64{"a.c:f": {1}, "???:g": {2}, "b.c:???": {3}},
		},
		{
			"no reset before counts",
			`events: Ir
fn=f
fl=a.c
1 4
fl=b.c
fn=g
fl=c.c
2 8
`,
			[]string{"Ir"},
			map[string][]int64{"a.c:f": {4}, "c.c:g": {8}},
		},
		{
			"padding and blanks",
			`events: Ir Dr Dw

fl=a.c
fn=f

1 5
2 1 2 3
summary: 6 2 3
`,
			[]string{"Ir", "Dr", "Dw"},
			map[string][]int64{"a.c:f": {6, 2, 3}},
		},
		{
			"trailing content",
			`events: Ir
fl=a.c
fn=f
1 5
summary: 5
this is not part of the profile
1 2 3 4
`,
			[]string{"Ir"},
			map[string][]int64{"a.c:f": {5}},
		},
		{
			"empty body",
			`events: Ir Dr
`,
			[]string{"Ir", "Dr"},
			map[string][]int64{},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			p := mustParse(t, test.input)
			if diff := cmp.Diff(test.events, p.Counts.Events()); diff != "" {
				t.Errorf("events (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(test.want, tableMap(p.Counts)); diff != "" {
				t.Errorf("counts (-want +got):\n%s", diff)
			}
			if p.Summary != nil && !cmp.Equal(p.Summary, p.Counts.Aggregate()) {
				t.Errorf("summary %v != aggregate %v", p.Summary, p.Counts.Aggregate())
			}
		})
	}
}

func TestParseHeaders(t *testing.T) {
	p := mustParse(t, `desc: I1 cache: 32768 B
desc: D1 cache: 32768 B
cmd:   ./server --port 0
events: Ir
`)
	if want := []string{"I1 cache: 32768 B", "D1 cache: 32768 B"}; !cmp.Equal(p.Desc, want) {
		t.Errorf("Desc = %q, want %q", p.Desc, want)
	}
	if want := "./server --port 0"; p.Cmd != want {
		t.Errorf("Cmd = %q, want %q", p.Cmd, want)
	}
	if p.Summary != nil {
		t.Errorf("Summary = %v, want nil", p.Summary)
	}
}

func TestParseErrors(t *testing.T) {
	for _, test := range []struct {
		name, input string
		line        int
		msg         string
	}{
		{"unhandled header", "desc: x\nbogus\n", 2, `unhandled line "bogus"`},
		{"cost line in headers", "events: Ir\n1 2\n", 2, `unhandled line "1 2"`},
		{"bad count", "events: Ir\nfl=a\n1 x\n", 3, `malformed count "x"`},
		{"bad line number", "events: Ir\nfl=a\nx 1\n", 3, `malformed line number "x"`},
		{"header in body", "events: Ir\nfl=a\ncmd: foo\n", 3, `malformed line number "cmd:"`},
		{"too many counts", "events: Ir\nfl=a\n1 2 3\n", 3, "2 counts for 1 events"},
		{"no events", "fl=a\n1 2\n", 2, "cost line before events header"},
		{"summary without events", "fn=f\nsummary: 1\n", 2, "summary before events header"},
		{"bad summary", "events: Ir\nfl=a\nsummary: x\n", 3, `malformed summary count "x"`},
		{"empty", "", 0, "no events header"},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(test.input), "test")
			var serr *SyntaxError
			if !errors.As(err, &serr) {
				t.Fatalf("got error %v, want *SyntaxError", err)
			}
			want := &SyntaxError{"test", test.line, test.msg}
			if *serr != *want {
				t.Errorf("got %v, want %v", serr, want)
			}
		})
	}
}

func TestSummaryMismatch(t *testing.T) {
	_, err := Parse(strings.NewReader("events: Ir Dr\nfl=a\nfn=f\n1 10 2\nsummary: 11 2\n"), "bad.out")
	var serr *SummaryError
	if !errors.As(err, &serr) {
		t.Fatalf("got error %v, want *SummaryError", err)
	}
	if serr.Line != 5 || !cmp.Equal(serr.Want, []int64{11, 2}) || !cmp.Equal(serr.Got, []int64{10, 2}) {
		t.Errorf("got %+v", serr)
	}
	if !strings.HasPrefix(serr.Error(), "bad.out:5: ") {
		t.Errorf("error %q lacks position", serr)
	}

	// A summary with the wrong number of counts is also a mismatch.
	_, err = Parse(strings.NewReader("events: Ir Dr\nfl=a\n1 10 2\nsummary: 10\n"), "short.out")
	if !errors.As(err, &serr) {
		t.Fatalf("got error %v, want *SummaryError", err)
	}
}

func TestParserSticky(t *testing.T) {
	p := NewParser("")
	err := p.Line("garbage")
	if err == nil {
		t.Fatal("want error for garbage line")
	}
	if err2 := p.Line("events: Ir"); err2 != err {
		t.Errorf("second Line returned %v, want sticky %v", err2, err)
	}
	if _, err3 := p.Finish(); err3 != err {
		t.Errorf("Finish returned %v, want sticky %v", err3, err)
	}
	if !strings.HasPrefix(err.Error(), "<unknown>:1: ") {
		t.Errorf("error %q has wrong position", err)
	}
}

func writeTemp(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cachegrind.out")
	if err := os.WriteFile(path, []byte(data), 0666); err != nil {
		t.Fatal(err)
	}
	return path
}

const mangled = `events: Ir
fl=main.swift
fn=$s4main6handleyyF
1 42
summary: 42
`

func TestParseFileDemangle(t *testing.T) {
	path := writeTemp(t, mangled)
	ctx := context.Background()

	p, err := ParseFile(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Counts.Has("main.swift:$s4main6handleyyF") {
		t.Errorf("without demangler, got keys %v", p.Counts.Keys())
	}

	d := DemanglerFunc(func(ctx context.Context, raw []byte) ([]byte, error) {
		return bytes.ReplaceAll(raw, []byte("$s4main6handleyyF"), []byte("main.handle() -> ()")), nil
	})
	p, err = ParseFile(ctx, path, d)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"main.swift:main.handle() -> ()"}; !cmp.Equal(p.Counts.Keys(), want) {
		t.Errorf("with demangler, got keys %v, want %v", p.Counts.Keys(), want)
	}
}

func TestParseFileDemangleErrors(t *testing.T) {
	path := writeTemp(t, mangled)
	ctx := context.Background()

	failed := errors.New("no demangler")
	_, err := ParseFile(ctx, path, DemanglerFunc(func(context.Context, []byte) ([]byte, error) {
		return nil, failed
	}))
	if !errors.Is(err, failed) {
		t.Errorf("got %v, want wrapped %v", err, failed)
	}

	_, err = ParseFile(ctx, path, DemanglerFunc(func(_ context.Context, raw []byte) ([]byte, error) {
		return append(raw, "extra\n"...), nil
	}))
	if err == nil || !strings.Contains(err.Error(), "output has 6 lines, input has 5") {
		t.Errorf("got %v, want line count error", err)
	}

	if _, err := ParseFile(ctx, filepath.Join(t.TempDir(), "missing"), nil); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want not-exist error", err)
	}
}

func TestCountLines(t *testing.T) {
	for _, test := range []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a\n", 1},
		{"a\nb", 2},
		{"\n\n", 2},
	} {
		if got := countLines([]byte(test.in)); got != test.want {
			t.Errorf("countLines(%q) = %d, want %d", test.in, got, test.want)
		}
	}
}
