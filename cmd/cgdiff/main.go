// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Cgdiff compares the instruction counts of two cachegrind profiles.
//
// Usage:
//
//	cgdiff [flags] file1 file2
//
// Each input file should contain the output of one cachegrind run.
// file1 is the baseline and file2 the candidate. For every
// "file:function" key found in either file, cgdiff prints the count of
// the chosen event in each file, the difference, and that difference
// as a percentage of the baseline's program total:
//
//	         file1 |          file2 |          delta |       % | name
//	         6,000 |          4,800 |         -1,200 | -20.000 | PROGRAM TOTALS
//	         3,000 |          2,400 |           -600 | -10.000 | main.c:handle
//
// Rows whose percentage is smaller in magnitude than -low-watermark
// are left out. The PROGRAM TOTALS row is subject to the same filter.
//
// The -event option selects the event to compare. The default is Ir,
// the instructions executed.
//
// The -sort option selects the column to sort by: file1 (the
// default), file2, or delta. Rows are sorted in descending order
// unless -ascending is given.
//
// The -only-common option restricts the report to keys found in both
// files. The PROGRAM TOTALS row still covers every key.
//
// The -summary option prints only the program totals of each file,
// labeled with its base name, and their difference.
//
// Symbol names are passed through the command given by -demangler
// (default "swift demangle") before they are parsed, unless
// -no-demangle or -summary is given.
//
// The -format option selects text (the default), csv, or html output.
// The -geomean option adds the geometric mean of the per-key ratios
// file2/file1 over the keys with non-zero counts in both files.
//
// The -chart option also draws the -top largest percentage changes as
// a bar chart to the named .png, .svg or .pdf file.
//
// An input of the form db:ID names a profile stored by cgsave in the
// database given by -db, for example:
//
//	cgdiff -db sqlite3:profiles.db db:1 new.out
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/grpc/cgperf/cgchart"
	"github.com/grpc/cgperf/cgdiff"
	"github.com/grpc/cgperf/cgfmt"
	"github.com/grpc/cgperf/storage/db"
	_ "github.com/grpc/cgperf/storage/db/sqlite3"
)

var exit = os.Exit // replaced during testing

// newDemangler returns the demangler for a -demangler command line.
// It is replaced during testing.
var newDemangler = func(cmdline string) cgfmt.Demangler {
	if c := cgfmt.ParseCommand(cmdline); c != nil {
		return c
	}
	return nil
}

// errUsage reports bad command line arguments. The usage message has
// already been printed.
var errUsage = errors.New("usage")

func main() {
	log.SetPrefix("cgdiff: ")
	log.SetFlags(0)
	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if err != errUsage {
			log.Print(err)
			exit(1)
		}
		exit(2)
	}
}

// run is the body of the cgdiff command. It writes results to w and
// diagnostics to wErr.
func run(w, wErr io.Writer, args []string) error {
	flags := flag.NewFlagSet("cgdiff", flag.ContinueOnError)
	flags.SetOutput(wErr)
	flags.Usage = func() {
		fmt.Fprintf(wErr, "usage: cgdiff [flags] file1 file2\n")
		flags.PrintDefaults()
	}
	var (
		flagEvent        = flags.String("event", cgdiff.DefaultEvent, "compare counts of `event`")
		flagSort         = flags.String("sort", "file1", "sort by `column`: file1, file2, or delta")
		flagAscending    = flags.Bool("ascending", false, "sort in ascending order")
		flagOnlyCommon   = flags.Bool("only-common", false, "only report keys present in both files")
		flagNoDemangle   = flags.Bool("no-demangle", false, "do not demangle symbol names")
		flagDemangler    = flags.String("demangler", cgfmt.SwiftDemangle.String(), "demangle symbol names with `command`")
		flagLowWatermark = flags.Float64("low-watermark", 0.01, "omit rows whose change is below `percent` of the baseline total")
		flagSummary      = flags.Bool("summary", false, "only compare program totals")
		flagFormat       = flags.String("format", "text", "print results in `format`: text, csv, or html")
		flagGeoMean      = flags.Bool("geomean", false, "print the geometric mean of the per-key ratios")
		flagChart        = flags.String("chart", "", "draw the largest changes to `file` (.png, .svg or .pdf)")
		flagTop          = flags.Int("top", 20, "chart at most `n` rows")
		flagDB           = flags.String("db", "", "load db:ID inputs from `driver:dsn`")
	)
	if err := flags.Parse(args); err != nil {
		return errUsage
	}
	usageErr := func(format string, args ...interface{}) error {
		fmt.Fprintf(wErr, format+"\n", args...)
		flags.Usage()
		return errUsage
	}
	if flags.NArg() != 2 {
		return usageErr("want exactly two input files")
	}
	sortCol, err := cgdiff.ParseColumn(*flagSort)
	if err != nil {
		return usageErr("%v", err)
	}
	switch *flagFormat {
	case "text", "csv", "html":
	default:
		return usageErr("unknown format %q", *flagFormat)
	}
	if *flagLowWatermark < 0 {
		return usageErr("-low-watermark must not be negative")
	}
	if *flagTop <= 0 {
		return usageErr("-top must be positive")
	}

	ctx := context.Background()
	var demangler cgfmt.Demangler
	if !*flagNoDemangle && !*flagSummary {
		demangler = newDemangler(*flagDemangler)
	}
	var store *db.DB
	if *flagDB != "" {
		store, err = db.Open(*flagDB)
		if err != nil {
			return err
		}
		defer store.Close()
	}
	load := func(arg string) (*cgfmt.Profile, error) {
		ref, ok := strings.CutPrefix(arg, "db:")
		if !ok {
			return cgfmt.ParseFile(ctx, arg, demangler)
		}
		if store == nil {
			return nil, fmt.Errorf("%s: no database given with -db", arg)
		}
		id, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: malformed profile ID", arg)
		}
		_, p, err := store.Profile(ctx, id)
		return p, err
	}

	file1, file2 := flags.Arg(0), flags.Arg(1)
	a, err := load(file1)
	if err != nil {
		return err
	}
	b, err := load(file2)
	if err != nil {
		return err
	}

	if *flagSummary {
		s, err := cgdiff.Summarize(a.Counts, b.Counts, *flagEvent)
		if err != nil {
			return err
		}
		s.BaselineName, s.CandidateName = label(file1), label(file2)
		return s.FormatText(w)
	}

	r, err := cgdiff.Compare(a.Counts, b.Counts, cgdiff.Options{
		Event:        *flagEvent,
		Sort:         sortCol,
		Ascending:    *flagAscending,
		OnlyCommon:   *flagOnlyCommon,
		LowWatermark: *flagLowWatermark,
		GeoMean:      *flagGeoMean,
	})
	if err != nil {
		return err
	}
	switch *flagFormat {
	case "text":
		err = r.FormatText(w)
	case "csv":
		err = r.FormatCSV(w)
	case "html":
		err = r.FormatHTML(w)
	}
	if err != nil {
		return err
	}
	if r.Suppressed > 0 && *flagFormat == "text" {
		fmt.Fprintf(wErr, "%d row(s) below %g%% omitted\n", r.Suppressed, *flagLowWatermark)
	}

	if *flagChart != "" {
		if err := cgchart.WriteFile(*flagChart, r, *flagTop); err != nil {
			return fmt.Errorf("chart: %w", err)
		}
	}
	return nil
}

// label names an input in summary output: the base name of a file,
// or the db:ID reference of a stored profile.
func label(arg string) string {
	if strings.HasPrefix(arg, "db:") {
		return arg
	}
	return filepath.Base(arg)
}
