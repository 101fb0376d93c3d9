// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite3 provides the sqlite3 driver for
// github.com/grpc/cgperf/storage/db. It must be imported instead of go-sqlite3
// to ensure foreign keys are properly honored.
package sqlite3

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/grpc/cgperf/storage/db"
)

func init() {
	db.RegisterOpenHook("sqlite3", func(db *sql.DB) error {
		// Serialize all queries. An in-memory database is private to
		// its connection, so a second connection would see no tables.
		db.SetMaxOpenConns(1)
		// Foreign keys are off by default.
		_, err := db.Exec("PRAGMA foreign_keys = ON")
		return err
	})
}
