// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diff reports differences between expected and actual test
// output.
package diff

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Diff returns a unified diff from want to got, or "" if they are
// equal. The sides are labeled "want" and "got". If the diff command
// cannot be run, both strings are quoted in full instead.
func Diff(want, got string) string {
	if want == got {
		return ""
	}
	cmd := "diff"
	if runtime.GOOS == "plan9" {
		cmd = "/bin/ape/diff"
	}
	if _, err := exec.LookPath(cmd); err != nil {
		return fmt.Sprintf("diff command unavailable\nwant: %q\ngot:  %q", want, got)
	}

	wantFile, err := writeTemp(want)
	if err != nil {
		return err.Error()
	}
	defer os.Remove(wantFile)
	gotFile, err := writeTemp(got)
	if err != nil {
		return err.Error()
	}
	defer os.Remove(gotFile)

	data, err := exec.Command(cmd, "-u", "--label", "want", "--label", "got", wantFile, gotFile).CombinedOutput()
	if len(data) > 0 {
		// diff exits with status 1 when the files differ.
		return string(data)
	}
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("want: %q\ngot:  %q", want, got)
}

func writeTemp(s string) (string, error) {
	f, err := os.CreateTemp("", "cgperf-diff")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(s); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
