// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diff

import (
	"os/exec"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	if d := Diff("a\nb\n", "a\nb\n"); d != "" {
		t.Errorf("Diff of equal strings = %q, want empty", d)
	}
	d := Diff("a\nb\n", "a\nc\n")
	if d == "" {
		t.Fatal("Diff of different strings is empty")
	}
	if _, err := exec.LookPath("diff"); err != nil {
		t.Skip("diff command unavailable")
	}
	for _, want := range []string{"-b", "+c"} {
		if !strings.Contains(d, want) {
			t.Errorf("Diff output missing %q:\n%s", want, d)
		}
	}
}
