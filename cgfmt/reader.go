// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cgfmt reads and writes the cachegrind profile output format.
//
// A profile starts with a header section of "desc:", "cmd:" and
// "events:" lines. The body alternates "fl=" and "fn=" context lines
// with cost lines, each of which is a line number followed by one
// count per event. An optional "summary:" trailer gives the expected
// per-event totals of the whole program:
//
//	desc: I1 cache: 32768 B, 64 B, 8-way associative
//	cmd: ./server
//	events: Ir Dr
//	fl=main.c
//	fn=main
//	12 1500 250
//	summary: 1500 250
//
// Costs are accumulated into a cgcount.Table keyed by "file:function".
package cgfmt

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/grpc/cgperf/cgcount"
)

// Unknown stands in for the file or function of a key when the input
// has not named one.
const Unknown = "???"

// A Profile is the parsed content of one profile file.
type Profile struct {
	Desc    []string // "desc:" values, in input order
	Cmd     string   // "cmd:" value
	Counts  *cgcount.Table
	Summary []int64 // "summary:" totals, or nil if the input had none
}

// A SyntaxError reports a malformed line of a profile file.
type SyntaxError struct {
	FileName string
	Line     int
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.FileName, e.Line, e.Msg)
}

// A SummaryError reports a "summary:" line that disagrees with the
// totals of the costs that precede it. It indicates a truncated or
// internally inconsistent input file.
type SummaryError struct {
	FileName string
	Line     int
	Want     []int64 // declared by the summary line
	Got      []int64 // computed from cost lines
}

func (e *SummaryError) Error() string {
	return fmt.Sprintf("%s:%d: summary %v does not match computed totals %v", e.FileName, e.Line, e.Want, e.Got)
}

type state int

const (
	readingHeaders state = iota
	readingInstruction
	readingCounts
	readingSummary
)

func (s state) String() string {
	switch s {
	case readingHeaders:
		return "headers"
	case readingInstruction:
		return "instruction"
	case readingCounts:
		return "counts"
	case readingSummary:
		return "summary"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// A Parser consumes a profile one line at a time.
//
// Construct a Parser with NewParser, feed it lines with Line, and
// collect the result with Finish. The first error returned by Line is
// sticky.
type Parser struct {
	fileName string
	line     int
	state    state
	err      error

	// Current file and function context. Empty means not set.
	file, function string

	profile Profile
}

// NewParser returns a Parser for the file named fileName. The name is
// only used in error messages.
func NewParser(fileName string) *Parser {
	if fileName == "" {
		fileName = "<unknown>"
	}
	return &Parser{fileName: fileName}
}

func (p *Parser) syntaxError(format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{p.fileName, p.line, fmt.Sprintf(format, args...)}
}

// key returns the instruction key for the current context.
func (p *Parser) key() string {
	fl, fn := p.file, p.function
	if fl == "" {
		fl = Unknown
	}
	if fn == "" {
		fn = Unknown
	}
	return fl + ":" + fn
}

// Line processes the next line of input. Trailing newline characters
// are ignored.
func (p *Parser) Line(line string) error {
	if p.err != nil {
		return p.err
	}
	p.line++
	line = strings.TrimRight(line, "\r\n")
	if p.state == readingSummary {
		return nil
	}
	if strings.TrimSpace(line) == "" {
		return nil
	}

	var next state
	var err error
	switch p.state {
	case readingHeaders:
		next, err = p.readHeaders(line)
	case readingInstruction:
		next, err = p.readInstruction(line, false)
	case readingCounts:
		next, err = p.readInstruction(line, true)
	default:
		panic("unexpected parser state " + p.state.String())
	}
	if err != nil {
		p.err = err
		return err
	}
	p.state = next
	return nil
}

func (p *Parser) readHeaders(line string) (state, error) {
	switch {
	case strings.HasPrefix(line, "events:"):
		p.profile.Counts = cgcount.New(strings.Fields(line[len("events:"):]))
		return readingHeaders, nil
	case strings.HasPrefix(line, "desc:"):
		p.profile.Desc = append(p.profile.Desc, strings.TrimSpace(line[len("desc:"):]))
		return readingHeaders, nil
	case strings.HasPrefix(line, "cmd:"):
		p.profile.Cmd = strings.TrimSpace(line[len("cmd:"):])
		return readingHeaders, nil
	}
	if next, ok := p.readContext(line, false); ok {
		return next, nil
	}
	return 0, p.syntaxError("unhandled line %q", line)
}

// readInstruction handles a line following a context or cost line.
// reset is set when the previous line was a cost line.
func (p *Parser) readInstruction(line string, reset bool) (state, error) {
	if next, ok := p.readContext(line, reset); ok {
		return next, nil
	}
	if strings.HasPrefix(line, "summary:") {
		return p.readSummary(line[len("summary:"):])
	}
	return p.readCounts(line)
}

// readContext handles "fl=" and "fn=" lines. When reset is set, the
// other half of the key is forgotten before the new value is applied.
func (p *Parser) readContext(line string, reset bool) (state, bool) {
	switch {
	case strings.HasPrefix(line, "fn="):
		p.function = strings.TrimSpace(line[len("fn="):])
		if reset {
			p.file = ""
		}
	case strings.HasPrefix(line, "fl="):
		p.file = strings.TrimSpace(line[len("fl="):])
		if reset {
			p.function = ""
		}
	default:
		return 0, false
	}
	return readingInstruction, true
}

func (p *Parser) readCounts(line string) (state, error) {
	if p.profile.Counts == nil {
		return 0, p.syntaxError("cost line before events header")
	}
	fields := strings.Fields(line)
	// Drop the line number.
	if _, err := strconv.ParseInt(fields[0], 10, 64); err != nil {
		return 0, p.syntaxError("malformed line number %q", fields[0])
	}
	fields = fields[1:]
	nev := len(p.profile.Counts.Events())
	if len(fields) > nev {
		return 0, p.syntaxError("%d counts for %d events", len(fields), nev)
	}
	// Trailing zero counts may be omitted.
	counts := make([]int64, nev)
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return 0, p.syntaxError("malformed count %q", f)
		}
		counts[i] = v
	}
	p.profile.Counts.Add(p.key(), counts)
	return readingCounts, nil
}

func (p *Parser) readSummary(rest string) (state, error) {
	if p.profile.Counts == nil {
		return 0, p.syntaxError("summary before events header")
	}
	fields := strings.Fields(rest)
	summary := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return 0, p.syntaxError("malformed summary count %q", f)
		}
		summary[i] = v
	}
	computed := p.profile.Counts.Aggregate()
	if !slices.Equal(summary, computed) {
		return 0, &SummaryError{p.fileName, p.line, summary, computed}
	}
	p.profile.Summary = summary
	return readingSummary, nil
}

// countLines returns the number of lines in data, counting a final
// unterminated line.
func countLines(data []byte) int {
	n := bytes.Count(data, []byte("\n"))
	if len(data) > 0 && data[len(data)-1] != '\n' {
		n++
	}
	return n
}

// Finish returns the parsed profile. It fails if any line failed to
// parse or if the input never declared its events.
func (p *Parser) Finish() (*Profile, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.profile.Counts == nil {
		return nil, &SyntaxError{p.fileName, p.line, "no events header"}
	}
	prof := p.profile
	return &prof, nil
}

// Parse reads an entire profile from r. fileName is used in error
// messages.
func Parse(r io.Reader, fileName string) (*Profile, error) {
	p := NewParser(fileName)
	s := bufio.NewScanner(r)
	// Demangled symbol names can be very long.
	s.Buffer(nil, 16<<20)
	for s.Scan() {
		if err := p.Line(s.Text()); err != nil {
			return nil, err
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("%s:%d: %w", p.fileName, p.line, err)
	}
	return p.Finish()
}

// ParseFile reads the profile at path. If d is non-nil, the file's
// content is passed through d before it is parsed.
func ParseFile(ctx context.Context, path string, d Demangler) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if d != nil {
		demangled, err := d.Demangle(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("demangling %s: %w", path, err)
		}
		if have, want := countLines(demangled), countLines(data); have != want {
			return nil, fmt.Errorf("demangling %s: output has %d lines, input has %d", path, have, want)
		}
		data = demangled
	}
	return Parse(bytes.NewReader(data), path)
}
