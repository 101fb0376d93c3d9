// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgfmt

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// A Demangler rewrites the symbol names in raw profile text. It must
// return the same number of lines as it was given.
type Demangler interface {
	Demangle(ctx context.Context, raw []byte) ([]byte, error)
}

// DemanglerFunc adapts an ordinary function to the Demangler
// interface.
type DemanglerFunc func(ctx context.Context, raw []byte) ([]byte, error)

func (f DemanglerFunc) Demangle(ctx context.Context, raw []byte) ([]byte, error) {
	return f(ctx, raw)
}

// A Command demangles by running an external program with the raw
// text on its standard input. The program's standard output is
// collected in full.
type Command struct {
	Path string
	Args []string
}

// SwiftDemangle runs "swift demangle".
var SwiftDemangle = &Command{Path: "swift", Args: []string{"demangle"}}

// ParseCommand splits a command line on white space. It returns nil
// for an empty command line.
func ParseCommand(cmdline string) *Command {
	f := strings.Fields(cmdline)
	if len(f) == 0 {
		return nil
	}
	return &Command{Path: f[0], Args: f[1:]}
}

func (c *Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

func (c *Command) Demangle(ctx context.Context, raw []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = bytes.NewReader(raw)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", c, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", c, err)
	}
	return out, nil
}
