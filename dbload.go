/*
 *  dbload.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"bufio"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3" // register the sqlite3 driver
	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"
)

// Connect opens the pipeline database. A database_url of the form
// sqlite:///./csvdb is accepted for compatibility with older configuration
// files; only the sqlite scheme is honored.
func Connect(database string) (*sql.DB, error) {
	path := strings.TrimPrefix(database, "sqlite:///")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open database %s", path)
	}
	return db, nil
}

// Attach makes a second SQLite file visible under the given schema name,
// the way report trackers attach the annotations database
func Attach(db *sql.DB, path, schema string) error {
	_, err := db.Exec(fmt.Sprintf(`ATTACH DATABASE '%s' AS %s`, path, schema))
	return errors.Wrapf(err, "cannot attach %s as %s", path, schema)
}

// LoadOptions tweaks how a delimited file becomes a table
type LoadOptions struct {
	// Comma is the field separator; tab when zero
	Comma rune
	// Indexes lists columns to index after the load
	Indexes []string
}

// quoteIdent quotes a SQLite identifier. Table names in the annotation
// database contain `$` (ensemblg2go$annot), so everything is quoted.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sanitizeColumn normalizes a header token into a usable column name
func sanitizeColumn(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, "%", "percent_")
	if name == "" {
		name = "column"
	}
	return name
}

// sniffType decides the SQLite affinity for a column given its values
func sniffType(values []string) string {
	isInt, isFloat := true, true
	seen := false
	for _, v := range values {
		if v == "" || v == "NA" || v == "nan" {
			continue
		}
		seen = true
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			isFloat = false
		}
	}
	switch {
	case !seen:
		return "TEXT"
	case isInt:
		return "INTEGER"
	case isFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// LoadFile bulk-loads a delimited file (gzip transparent) into a table,
// recreating the table. This is the Go rendition of the generic load task
// every pipeline calls after producing a TSV artifact.
func LoadFile(db *sql.DB, filename, table string, opts LoadOptions) error {
	fh, err := xopen.Ropen(filename)
	if err != nil {
		return errors.Wrapf(err, "cannot open %s", filename)
	}
	defer fh.Close()

	records, err := readDelimited(fh, opts.Comma)
	if err != nil {
		return errors.Wrapf(err, "cannot parse %s", filename)
	}
	if len(records) < 2 {
		return errors.Errorf("%s holds no rows to load", filename)
	}
	if err := LoadRows(db, table, records[0], records[1:], opts.Indexes...); err != nil {
		return errors.Wrapf(err, "cannot load %s", filename)
	}
	log.Noticef("Loaded %s into table `%s` (%d rows)", filename, table, len(records)-1)
	return nil
}

// LoadRows bulk-loads rows under the given header into a table, recreating
// the table inside one transaction
func LoadRows(db *sql.DB, table string, header []string, rows [][]string, indexes ...string) error {
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = sanitizeColumn(name)
	}

	types := make([]string, len(columns))
	for i := range columns {
		values := make([]string, 0, len(rows))
		for _, rec := range rows {
			if i < len(rec) {
				values = append(values, rec[i])
			}
		}
		types[i] = sniffType(values)
	}

	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = quoteIdent(col) + " " + types[i]
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",")

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "cannot begin load transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DROP TABLE IF EXISTS " + quoteIdent(table)); err != nil {
		return errors.Wrapf(err, "cannot drop table %s", table)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := tx.Exec(create); err != nil {
		return errors.Wrapf(err, "cannot create table %s", table)
	}

	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(table), placeholders)
	stmt, err := tx.Prepare(insert)
	if err != nil {
		return errors.Wrapf(err, "cannot prepare insert into %s", table)
	}
	defer stmt.Close()

	for _, rec := range rows {
		args := make([]interface{}, len(columns))
		for i := range columns {
			if i < len(rec) {
				args[i] = rec[i]
			} else {
				args[i] = nil
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return errors.Wrapf(err, "cannot insert row into %s", table)
		}
	}

	for _, col := range indexes {
		name := fmt.Sprintf("ix_%s_%s", strings.ReplaceAll(table, "$", "_"), sanitizeColumn(col))
		index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			quoteIdent(name), quoteIdent(table), quoteIdent(sanitizeColumn(col)))
		if _, err := tx.Exec(index); err != nil {
			return errors.Wrapf(err, "cannot index %s on %s", table, col)
		}
	}

	return errors.Wrapf(tx.Commit(), "cannot commit load of %s", table)
}

// readDelimited splits a delimited stream into records, skipping blank and
// comment lines. featureCounts writes a leading "# Program:..." line that
// must not become the header.
func readDelimited(r io.Reader, comma rune) ([][]string, error) {
	if comma == 0 {
		comma = '\t'
	}
	var records [][]string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		records = append(records, strings.Split(line, string(comma)))
	}
	return records, scanner.Err()
}
