// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Cgsave stores cachegrind profiles in a database for later
// comparison with cgdiff.
//
// Usage:
//
//	cgsave -db driver:dsn [-name label] [-no-demangle] [-demangler cmd] file...
//	cgsave -db driver:dsn -list
//	cgsave -db driver:dsn -get id
//	cgsave -db driver:dsn -delete id
//
// The database is given as a driver name and a data source name
// separated by a colon. The sqlite3 and mysql drivers are supported:
//
//	cgsave -db sqlite3:profiles.db base.out
//	cgsave -db 'mysql:user:pass@tcp(localhost:3306)/cgperf' base.out
//
// Each file is parsed (and demangled, as cgdiff does) and stored
// under the label given by -name, or under its base file name. For
// each file cgsave prints the new profile ID and label, separated by a
// tab. A stored profile can be passed to cgdiff as db:ID.
//
// The -list option prints the stored profiles. The -get option writes
// one stored profile to standard output in the cachegrind format. The
// -delete option removes a stored profile.
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

	"github.com/grpc/cgperf/cgfmt"
	"github.com/grpc/cgperf/internal/texttab"
	"github.com/grpc/cgperf/storage/db"
	_ "github.com/grpc/cgperf/storage/db/sqlite3"
)

var exit = os.Exit // replaced during testing

// newDemangler is replaced during testing.
var newDemangler = func(cmdline string) cgfmt.Demangler {
	if c := cgfmt.ParseCommand(cmdline); c != nil {
		return c
	}
	return nil
}

var errUsage = errors.New("usage")

func main() {
	log.SetPrefix("cgsave: ")
	log.SetFlags(0)
	if err := cgsave(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if err != errUsage {
			log.Print(err)
			exit(1)
		}
		exit(2)
	}
}

func cgsave(w, wErr io.Writer, args []string) error {
	flags := flag.NewFlagSet("cgsave", flag.ContinueOnError)
	flags.SetOutput(wErr)
	flags.Usage = func() {
		fmt.Fprintf(wErr, `usage: cgsave -db driver:dsn [flags] file...
	cgsave -db driver:dsn -list
	cgsave -db driver:dsn -get id
	cgsave -db driver:dsn -delete id
`)
		flags.PrintDefaults()
	}
	var (
		flagDB         = flags.String("db", "", "store profiles in `driver:dsn`")
		flagName       = flags.String("name", "", "store profiles under `label` instead of the file name")
		flagNoDemangle = flags.Bool("no-demangle", false, "do not demangle symbol names")
		flagDemangler  = flags.String("demangler", cgfmt.SwiftDemangle.String(), "demangle symbol names with `command`")
		flagList       = flags.Bool("list", false, "list stored profiles")
		flagGet        = flags.Int64("get", 0, "write stored profile `id` to standard output")
		flagDelete     = flags.Int64("delete", 0, "delete stored profile `id`")
	)
	if err := flags.Parse(args); err != nil {
		return errUsage
	}
	usageErr := func(msg string) error {
		fmt.Fprintln(wErr, msg)
		flags.Usage()
		return errUsage
	}
	if *flagDB == "" {
		return usageErr("-db is required")
	}
	modes := 0
	for _, set := range []bool{*flagList, *flagGet != 0, *flagDelete != 0, flags.NArg() > 0} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return usageErr("want files, or exactly one of -list, -get and -delete")
	}

	ctx := context.Background()
	store, err := db.Open(*flagDB)
	if err != nil {
		return err
	}
	defer store.Close()

	switch {
	case *flagList:
		return list(ctx, w, store)
	case *flagGet != 0:
		_, p, err := store.Profile(ctx, *flagGet)
		if err != nil {
			return err
		}
		return cgfmt.NewWriter(w).Write(p)
	case *flagDelete != 0:
		return store.DeleteProfile(ctx, *flagDelete)
	}

	var demangler cgfmt.Demangler
	if !*flagNoDemangle {
		demangler = newDemangler(*flagDemangler)
	}
	for _, file := range flags.Args() {
		p, err := cgfmt.ParseFile(ctx, file, demangler)
		if err != nil {
			return err
		}
		name := *flagName
		if name == "" {
			name = filepath.Base(file)
		}
		id, err := store.InsertProfile(ctx, name, p)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		fmt.Fprintf(w, "%d\t%s\n", id, name)
	}
	return nil
}

func list(ctx context.Context, w io.Writer, store *db.DB) error {
	infos, err := store.ListProfiles(ctx)
	if err != nil {
		return err
	}
	tab := texttab.New("  ")
	tab.Row().Cell("id", texttab.Right).Cell("name").Cell("keys", texttab.Right).Cell("events").Cell("cmd")
	for _, info := range infos {
		tab.Row().
			Cell(strconv.FormatInt(info.ID, 10), texttab.Right).
			Cell(info.Name).
			Cell(strconv.Itoa(info.Keys), texttab.Right).
			Cell(strings.Join(info.Events, " ")).
			Cell(info.Cmd)
	}
	return tab.Format(w)
}
