// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgfmt

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// A Writer writes profiles in the cachegrind format.
type Writer struct {
	w   io.Writer
	buf bytes.Buffer
}

// NewWriter returns a writer that writes profiles to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes p to w. Each key is written as its own "fl=", "fn="
// and cost line block, in sorted key order, so the per-line detail of
// the original input is not reproduced. A key is split into file and
// function at its first colon, so colons in function names such as
// "ns::f" are kept; a leading Windows drive letter is kept with the file.
// A file name with any other colon is split in the wrong place.
//
// The summary line is written only if p has one.
func (w *Writer) Write(p *Profile) error {
	if p.Counts == nil {
		return fmt.Errorf("profile has no events")
	}
	for _, d := range p.Desc {
		fmt.Fprintf(&w.buf, "desc: %s\n", d)
	}
	if p.Cmd != "" {
		fmt.Fprintf(&w.buf, "cmd: %s\n", p.Cmd)
	}
	fmt.Fprintf(&w.buf, "events: %s\n", strings.Join(p.Counts.Events(), " "))

	for _, key := range p.Counts.Keys() {
		fl, fn := splitKey(key)
		fmt.Fprintf(&w.buf, "fl=%s\nfn=%s\n0", fl, fn)
		w.appendCounts(p.Counts.Counts(key))
	}
	if p.Summary != nil {
		w.buf.WriteString("summary:")
		w.appendCounts(p.Summary)
	}

	_, err := w.w.Write(w.buf.Bytes())
	w.buf.Reset()
	return err
}

func (w *Writer) appendCounts(counts []int64) {
	var num [20]byte
	for _, c := range counts {
		w.buf.WriteByte(' ')
		w.buf.Write(strconv.AppendInt(num[:0], c, 10))
	}
	w.buf.WriteByte('\n')
}

// splitKey splits an instruction key into its file and function.
func splitKey(key string) (file, function string) {
	i := strings.IndexByte(key, ':')
	if i < 0 {
		return Unknown, key
	}
	if i == 1 && isLetter(key[0]) && len(key) > 2 && (key[2] == '\\' || key[2] == '/') {
		if j := strings.IndexByte(key[2:], ':'); j >= 0 {
			i = 2 + j
		}
	}
	return key[:i], key[i+1:]
}

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}
