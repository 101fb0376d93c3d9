// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db stores parsed profiles in a SQL database so that a
// baseline can be recorded once and compared against later.
package db

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/net/context"

	"github.com/grpc/cgperf/cgcount"
	"github.com/grpc/cgperf/cgfmt"
)

// ErrNotFound is returned when a profile ID does not exist.
var ErrNotFound = errors.New("profile not found")

// DB is a high-level interface to a profile database. It's safe for
// concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// prepared statements
	insertProfile *sql.Stmt
	insertCount   *sql.Stmt
}

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		db.Close()
		return nil, err
	}
	if err := d.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Open opens a database described as "driver:dsn", for example
// "sqlite3:profiles.db" or "mysql:root@tcp(localhost)/cgperf". The
// driver must already be registered.
func Open(target string) (*DB, error) {
	driverName, dataSourceName, ok := strings.Cut(target, ":")
	if !ok || driverName == "" {
		return nil, fmt.Errorf("database %q: want driver:dsn", target)
	}
	return OpenSQL(driverName, dataSourceName)
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a connection to driverName.
// It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Profiles (
	ProfileID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}},
	Name VARCHAR(255),
	Cmd TEXT,
	Descs TEXT,
	Events TEXT,
	Summary TEXT
);
CREATE TABLE IF NOT EXISTS Counts (
	ProfileID BIGINT UNSIGNED,
	KeyID BIGINT UNSIGNED,
	Name TEXT,
	Counts TEXT,
	PRIMARY KEY (ProfileID, KeyID),
	FOREIGN KEY (ProfileID) REFERENCES Profiles(ProfileID) ON UPDATE CASCADE ON DELETE CASCADE
);
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements() error {
	var err error
	db.insertProfile, err = db.sql.Prepare("INSERT INTO Profiles(Name, Cmd, Descs, Events, Summary) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	db.insertCount, err = db.sql.Prepare("INSERT INTO Counts(ProfileID, KeyID, Name, Counts) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	return nil
}

// A ProfileInfo describes a stored profile.
type ProfileInfo struct {
	ID     int64
	Name   string
	Cmd    string
	Events []string
	Keys   int // number of instruction keys
}

// InsertProfile stores p under name and returns its new ID.
func (db *DB) InsertProfile(ctx context.Context, name string, p *cgfmt.Profile) (id int64, err error) {
	if p.Counts == nil {
		return 0, fmt.Errorf("profile %s has no events", name)
	}
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var summary sql.NullString
	if p.Summary != nil {
		summary = sql.NullString{String: formatCounts(p.Summary), Valid: true}
	}
	res, err := tx.StmtContext(ctx, db.insertProfile).ExecContext(ctx,
		name, p.Cmd, strings.Join(p.Desc, "\n"), strings.Join(p.Counts.Events(), " "), summary)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}
	stmt := tx.StmtContext(ctx, db.insertCount)
	for i, key := range p.Counts.Keys() {
		if _, err = stmt.ExecContext(ctx, id, i, key, formatCounts(p.Counts.Counts(key))); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// Profile loads the profile with the given ID.
func (db *DB) Profile(ctx context.Context, id int64) (*ProfileInfo, *cgfmt.Profile, error) {
	var (
		info          = &ProfileInfo{ID: id}
		descs, events string
		summary       sql.NullString
		p             cgfmt.Profile
		err           error
	)
	row := db.sql.QueryRowContext(ctx, "SELECT Name, Cmd, Descs, Events, Summary FROM Profiles WHERE ProfileID = ?", id)
	if err := row.Scan(&info.Name, &info.Cmd, &descs, &events, &summary); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, fmt.Errorf("profile %d: %w", id, ErrNotFound)
		}
		return nil, nil, err
	}
	info.Events = strings.Fields(events)
	p.Cmd = info.Cmd
	if descs != "" {
		p.Desc = strings.Split(descs, "\n")
	}
	if summary.Valid {
		if p.Summary, err = parseCounts(summary.String); err != nil {
			return nil, nil, fmt.Errorf("profile %d: summary: %v", id, err)
		}
	}
	p.Counts = cgcount.New(info.Events)

	rows, err := db.sql.QueryContext(ctx, "SELECT Name, Counts FROM Counts WHERE ProfileID = ? ORDER BY KeyID", id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var key, counts string
		if err := rows.Scan(&key, &counts); err != nil {
			return nil, nil, err
		}
		c, err := parseCounts(counts)
		if err != nil {
			return nil, nil, fmt.Errorf("profile %d: key %s: %v", id, key, err)
		}
		if len(c) != len(info.Events) {
			return nil, nil, fmt.Errorf("profile %d: key %s: %d counts for %d events", id, key, len(c), len(info.Events))
		}
		p.Counts.Add(key, c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	info.Keys = p.Counts.Len()
	return info, &p, nil
}

// ListProfiles returns all stored profiles in ID order.
func (db *DB) ListProfiles(ctx context.Context) ([]*ProfileInfo, error) {
	rows, err := db.sql.QueryContext(ctx, `SELECT p.ProfileID, p.Name, p.Cmd, p.Events, COUNT(c.KeyID)
FROM Profiles p LEFT JOIN Counts c ON c.ProfileID = p.ProfileID
GROUP BY p.ProfileID, p.Name, p.Cmd, p.Events
ORDER BY p.ProfileID`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var infos []*ProfileInfo
	for rows.Next() {
		var info ProfileInfo
		var events string
		if err := rows.Scan(&info.ID, &info.Name, &info.Cmd, &events, &info.Keys); err != nil {
			return nil, err
		}
		info.Events = strings.Fields(events)
		infos = append(infos, &info)
	}
	return infos, rows.Err()
}

// DeleteProfile removes the profile with the given ID.
func (db *DB) DeleteProfile(ctx context.Context, id int64) (err error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	if _, err = tx.ExecContext(ctx, "DELETE FROM Counts WHERE ProfileID = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM Profiles WHERE ProfileID = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("profile %d: %w", id, ErrNotFound)
	}
	return nil
}

// CountProfiles returns the number of stored profiles.
func (db *DB) CountProfiles() (int, error) {
	var n int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM Profiles").Scan(&n)
	return n, err
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	if err := db.insertProfile.Close(); err != nil {
		return err
	}
	if err := db.insertCount.Close(); err != nil {
		return err
	}
	return db.sql.Close()
}

func formatCounts(counts []int64) string {
	var buf []byte
	for i, c := range counts {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendInt(buf, c, 10)
	}
	return string(buf)
}

func parseCounts(s string) ([]int64, error) {
	fields := strings.Fields(s)
	counts := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, err
		}
		counts[i] = v
	}
	return counts, nil
}
