// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgfmt

import (
	"context"
	"os/exec"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCommand(t *testing.T) {
	if c := ParseCommand("  "); c != nil {
		t.Errorf("ParseCommand(blank) = %v, want nil", c)
	}
	c := ParseCommand("swift  demangle --simplified")
	want := &Command{Path: "swift", Args: []string{"demangle", "--simplified"}}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("ParseCommand (-want +got):\n%s", diff)
	}
	if c.String() != "swift demangle --simplified" {
		t.Errorf("String() = %q", c.String())
	}
}

func TestCommand(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	ctx := context.Background()
	out, err := (&Command{Path: "cat"}).Demangle(ctx, []byte(mangled))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != mangled {
		t.Errorf("cat changed its input: %q", out)
	}

	if _, err := (&Command{Path: "cgperf-no-such-demangler"}).Demangle(ctx, nil); err == nil {
		t.Errorf("missing demangler succeeded")
	}
}
