// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db stores completed series sets in a SQL database so that
// they can be charted again without rerunning the sweep.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpools/poolperf/series"
)

// ErrNotFound is returned by LoadSet and DeleteSet for an unknown set.
var ErrNotFound = errors.New("set not found")

// DB is a high-level interface to a results database. It's safe for
// concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// prepared statements
	insertSet    *sql.Stmt
	insertPhase  *sql.Stmt
	insertSeries *sql.Stmt
	insertPoint  *sql.Stmt
	insertValue  *sql.Stmt
}

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only sqlite3 is supported.
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
	if err := d.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	if err := d.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a connection to driverName.
// This is used by the sqlite3 package to configure its connections.
// It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

const schema = `
CREATE TABLE IF NOT EXISTS Sets (
	SetID INTEGER PRIMARY KEY AUTOINCREMENT,
	Name VARCHAR(255),
	Title VARCHAR(255),
	XLabel VARCHAR(255),
	YLabel VARCHAR(255),
	Created TIMESTAMP
);
CREATE TABLE IF NOT EXISTS Phases (
	SetID BIGINT UNSIGNED,
	PhaseIndex INTEGER,
	Name VARCHAR(255),
	PRIMARY KEY (SetID, PhaseIndex),
	FOREIGN KEY (SetID) REFERENCES Sets(SetID) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS Series (
	SetID BIGINT UNSIGNED,
	SeriesIndex INTEGER,
	Label VARCHAR(255),
	PRIMARY KEY (SetID, SeriesIndex),
	FOREIGN KEY (SetID) REFERENCES Sets(SetID) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS Points (
	SetID BIGINT UNSIGNED,
	SeriesIndex INTEGER,
	PointIndex INTEGER,
	X DOUBLE,
	PRIMARY KEY (SetID, SeriesIndex, PointIndex),
	FOREIGN KEY (SetID, SeriesIndex) REFERENCES Series(SetID, SeriesIndex) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS PointValues (
	SetID BIGINT UNSIGNED,
	SeriesIndex INTEGER,
	PointIndex INTEGER,
	PhaseIndex INTEGER,
	Value DOUBLE,
	PRIMARY KEY (SetID, SeriesIndex, PointIndex, PhaseIndex),
	FOREIGN KEY (SetID, SeriesIndex, PointIndex) REFERENCES Points(SetID, SeriesIndex, PointIndex) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS SetsName ON Sets(Name);
`

// createTables creates any missing tables on the connection in
// db.sql.
func (db *DB) createTables() error {
	for _, q := range strings.Split(schema, ";") {
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
	for _, s := range []struct {
		stmt **sql.Stmt
		q    string
	}{
		{&db.insertSet, "INSERT INTO Sets(Name, Title, XLabel, YLabel, Created) VALUES (?, ?, ?, ?, ?)"},
		{&db.insertPhase, "INSERT INTO Phases(SetID, PhaseIndex, Name) VALUES (?, ?, ?)"},
		{&db.insertSeries, "INSERT INTO Series(SetID, SeriesIndex, Label) VALUES (?, ?, ?)"},
		{&db.insertPoint, "INSERT INTO Points(SetID, SeriesIndex, PointIndex, X) VALUES (?, ?, ?, ?)"},
		{&db.insertValue, "INSERT INTO PointValues(SetID, SeriesIndex, PointIndex, PhaseIndex, Value) VALUES (?, ?, ?, ?, ?)"},
	} {
		var err error
		*s.stmt, err = db.sql.Prepare(s.q)
		if err != nil {
			return err
		}
	}
	return nil
}

// now is a hook for testing
var now = time.Now

// SetInfo describes a stored set.
type SetInfo struct {
	ID      int64
	Name    string
	Title   string
	Created time.Time
	Series  int
}

// InsertSet stores set under name and returns its ID. Every series must
// have one value per phase at every point.
func (db *DB) InsertSet(ctx context.Context, name string, set *series.Set) (id int64, err error) {
	for _, s := range set.Series {
		if len(s.Values) != len(set.Phases) {
			return 0, fmt.Errorf("series %s has %d phases, want %d", s.Label, len(s.Values), len(set.Phases))
		}
		for p, vals := range s.Values {
			if len(vals) != len(s.X) {
				return 0, fmt.Errorf("series %s has %d %s values for %d points", s.Label, len(vals), set.Phases[p], len(s.X))
			}
		}
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

	res, err := tx.StmtContext(ctx, db.insertSet).ExecContext(ctx, name, set.Title, set.XLabel, set.YLabel, now().UTC())
	if err != nil {
		return 0, err
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, err
	}
	insertPhase := tx.StmtContext(ctx, db.insertPhase)
	for p, phase := range set.Phases {
		if _, err := insertPhase.ExecContext(ctx, id, p, phase); err != nil {
			return 0, err
		}
	}
	insertSeries := tx.StmtContext(ctx, db.insertSeries)
	insertPoint := tx.StmtContext(ctx, db.insertPoint)
	insertValue := tx.StmtContext(ctx, db.insertValue)
	for i, s := range set.Series {
		if _, err := insertSeries.ExecContext(ctx, id, i, s.Label); err != nil {
			return 0, err
		}
		for j, x := range s.X {
			if _, err := insertPoint.ExecContext(ctx, id, i, j, x); err != nil {
				return 0, err
			}
			for p := range s.Values {
				if _, err := insertValue.ExecContext(ctx, id, i, j, p, s.Values[p][j]); err != nil {
					return 0, err
				}
			}
		}
	}
	return id, nil
}

// LoadSet reads back the set with the given ID.
func (db *DB) LoadSet(ctx context.Context, id int64) (*series.Set, error) {
	set := new(series.Set)
	err := db.sql.QueryRowContext(ctx, "SELECT Title, XLabel, YLabel FROM Sets WHERE SetID = ?", id).
		Scan(&set.Title, &set.XLabel, &set.YLabel)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	} else if err != nil {
		return nil, err
	}

	if err := db.each(ctx, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		set.Phases = append(set.Phases, name)
		return nil
	}, "SELECT Name FROM Phases WHERE SetID = ? ORDER BY PhaseIndex", id); err != nil {
		return nil, err
	}

	if err := db.each(ctx, func(rows *sql.Rows) error {
		s := new(series.Series)
		if err := rows.Scan(&s.Label); err != nil {
			return err
		}
		set.Series = append(set.Series, s)
		return nil
	}, "SELECT Label FROM Series WHERE SetID = ? ORDER BY SeriesIndex", id); err != nil {
		return nil, err
	}

	if err := db.each(ctx, func(rows *sql.Rows) error {
		var si int
		var x float64
		if err := rows.Scan(&si, &x); err != nil {
			return err
		}
		if si < 0 || si >= len(set.Series) {
			return fmt.Errorf("point of unknown series %d", si)
		}
		set.Series[si].X = append(set.Series[si].X, x)
		return nil
	}, "SELECT SeriesIndex, X FROM Points WHERE SetID = ? ORDER BY SeriesIndex, PointIndex", id); err != nil {
		return nil, err
	}

	for _, s := range set.Series {
		s.Values = make([][]float64, len(set.Phases))
		for p := range s.Values {
			s.Values[p] = make([]float64, len(s.X))
		}
	}
	if err := db.each(ctx, func(rows *sql.Rows) error {
		var si, pi, ph int
		var v float64
		if err := rows.Scan(&si, &pi, &ph, &v); err != nil {
			return err
		}
		if si < 0 || si >= len(set.Series) || ph < 0 || ph >= len(set.Phases) || pi < 0 || pi >= len(set.Series[si].X) {
			return fmt.Errorf("value at (%d, %d, %d) out of range", si, pi, ph)
		}
		set.Series[si].Values[ph][pi] = v
		return nil
	}, "SELECT SeriesIndex, PointIndex, PhaseIndex, Value FROM PointValues WHERE SetID = ?", id); err != nil {
		return nil, err
	}
	return set, nil
}

// each runs query and calls f for every returned row.
func (db *DB) each(ctx context.Context, f func(*sql.Rows) error, query string, args ...interface{}) error {
	rows, err := db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := f(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListSets returns the stored sets, oldest first. If name is not
// empty, only sets stored under name are returned.
func (db *DB) ListSets(ctx context.Context, name string) ([]SetInfo, error) {
	query := `SELECT s.SetID, s.Name, s.Title, s.Created, (SELECT COUNT(*) FROM Series r WHERE r.SetID = s.SetID)
FROM Sets s`
	var args []interface{}
	if name != "" {
		query += " WHERE s.Name = ?"
		args = append(args, name)
	}
	query += " ORDER BY s.SetID"

	var out []SetInfo
	err := db.each(ctx, func(rows *sql.Rows) error {
		var info SetInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.Title, &info.Created, &info.Series); err != nil {
			return err
		}
		out = append(out, info)
		return nil
	}, query, args...)
	return out, err
}

// DeleteSet removes the set with the given ID and all its points.
func (db *DB) DeleteSet(ctx context.Context, id int64) error {
	res, err := db.sql.ExecContext(ctx, "DELETE FROM Sets WHERE SetID = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// CountSets returns the number of stored sets.
func (db *DB) CountSets(ctx context.Context) (int, error) {
	var n int
	err := db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM Sets").Scan(&n)
	return n, err
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	for _, stmt := range []*sql.Stmt{db.insertSet, db.insertPhase, db.insertSeries, db.insertPoint, db.insertValue} {
		if err := stmt.Close(); err != nil {
			return err
		}
	}
	return db.sql.Close()
}
