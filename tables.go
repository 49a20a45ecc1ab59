/*
 *  tables.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"
)

// StackTables concatenates delimited tables vertically into outfile,
// prepending a track column derived from each filename by trackFrom.
// All inputs must share one header. Gzip transparent on both ends.
func StackTables(outfile string, infiles []string, trackFrom func(string) string) error {
	outfh, err := xopen.Wopen(outfile)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", outfile)
	}
	defer outfh.Close()

	var header []string
	for _, infile := range infiles {
		fh, err := xopen.Ropen(infile)
		if err != nil {
			return errors.Wrapf(err, "cannot open %s", infile)
		}
		records, err := readDelimited(fh, '\t')
		fh.Close()
		if err != nil {
			return errors.Wrapf(err, "cannot parse %s", infile)
		}
		if len(records) == 0 {
			log.Warningf("%s holds no rows, skipped", infile)
			continue
		}
		if header == nil {
			header = records[0]
			fmt.Fprintf(outfh, "track\t%s\n", strings.Join(header, "\t"))
		} else if len(records[0]) != len(header) {
			return errors.Errorf("%s disagrees with the first table's header", infile)
		}
		track := trackFrom(infile)
		for _, rec := range records[1:] {
			fmt.Fprintf(outfh, "%s\t%s\n", track, strings.Join(rec, "\t"))
		}
	}
	return outfh.Flush()
}

// MergeColumn builds a key x track matrix from delimited tables: the key
// comes from column keyCol of each table, the value from column takeCol,
// and each input contributes one output column named by trackFrom. Keys
// missing from a table are emitted as "na".
func MergeColumn(outfile string, infiles []string, keyCol, takeCol int,
	keyName string, trackFrom func(string) string) error {

	values := make([]map[string]string, len(infiles))
	tracks := make([]string, len(infiles))
	var keys []string
	seen := map[string]bool{}

	for i, infile := range infiles {
		fh, err := xopen.Ropen(infile)
		if err != nil {
			return errors.Wrapf(err, "cannot open %s", infile)
		}
		records, err := readDelimited(fh, '\t')
		fh.Close()
		if err != nil {
			return errors.Wrapf(err, "cannot parse %s", infile)
		}
		tracks[i] = trackFrom(infile)
		values[i] = make(map[string]string, len(records))
		for _, rec := range records[1:] {
			if keyCol >= len(rec) || takeCol >= len(rec) {
				continue
			}
			key := rec[keyCol]
			values[i][key] = rec[takeCol]
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)

	outfh, err := xopen.Wopen(outfile)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", outfile)
	}
	defer outfh.Close()

	fmt.Fprintf(outfh, "%s\t%s\n", keyName, strings.Join(tracks, "\t"))
	row := make([]string, len(infiles))
	for _, key := range keys {
		for i := range infiles {
			v, ok := values[i][key]
			if !ok {
				v = "na"
			}
			row[i] = v
		}
		fmt.Fprintf(outfh, "%s\t%s\n", key, strings.Join(row, "\t"))
	}
	return outfh.Flush()
}

// JoinTables joins delimited tables on their first column, dropping
// duplicated column names so the result can be loaded cleanly. Rows absent
// from a table get "na" in its columns.
func JoinTables(outfile string, infiles []string) error {
	type column struct {
		name   string
		values map[string]string
	}
	var columns []column
	colSeen := map[string]bool{}
	var keys []string
	keySeen := map[string]bool{}
	keyName := ""

	for _, infile := range infiles {
		fh, err := xopen.Ropen(infile)
		if err != nil {
			return errors.Wrapf(err, "cannot open %s", infile)
		}
		records, err := readDelimited(fh, '\t')
		fh.Close()
		if err != nil {
			return errors.Wrapf(err, "cannot parse %s", infile)
		}
		if len(records) < 1 {
			log.Warningf("%s holds no rows, skipped", infile)
			continue
		}
		header := records[0]
		if keyName == "" {
			keyName = header[0]
		}
		kept := []int{}
		for j := 1; j < len(header); j++ {
			if colSeen[header[j]] {
				continue
			}
			colSeen[header[j]] = true
			kept = append(kept, j)
			columns = append(columns, column{name: header[j], values: map[string]string{}})
		}
		base := len(columns) - len(kept)
		for _, rec := range records[1:] {
			key := rec[0]
			if !keySeen[key] {
				keySeen[key] = true
				keys = append(keys, key)
			}
			for k, j := range kept {
				if j < len(rec) {
					columns[base+k].values[key] = rec[j]
				}
			}
		}
	}
	sort.Strings(keys)

	outfh, err := xopen.Wopen(outfile)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", outfile)
	}
	defer outfh.Close()

	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.name
	}
	fmt.Fprintf(outfh, "%s\t%s\n", keyName, strings.Join(names, "\t"))
	row := make([]string, len(columns))
	for _, key := range keys {
		for i, col := range columns {
			v, ok := col.values[key]
			if !ok {
				v = "na"
			}
			row[i] = v
		}
		fmt.Fprintf(outfh, "%s\t%s\n", key, strings.Join(row, "\t"))
	}
	return outfh.Flush()
}

// ExtractTable dumps one table of a database to a TSV file, the bridge
// that pulls QC tables out of an upstream mapping pipeline's database
func ExtractTable(db *sql.DB, table, outfile string) error {
	rows, err := db.Query("SELECT * FROM " + quoteIdent(table))
	if err != nil {
		return errors.Wrapf(err, "cannot select from %s", table)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return errors.Wrapf(err, "cannot describe %s", table)
	}

	outfh, err := xopen.Wopen(outfile)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", outfile)
	}
	defer outfh.Close()
	fmt.Fprintln(outfh, strings.Join(cols, "\t"))

	raw := make([]sql.NullString, len(cols))
	args := make([]interface{}, len(cols))
	for i := range raw {
		args[i] = &raw[i]
	}
	fields := make([]string, len(cols))
	for rows.Next() {
		if err := rows.Scan(args...); err != nil {
			return errors.Wrapf(err, "cannot scan row of %s", table)
		}
		for i, v := range raw {
			if v.Valid {
				fields[i] = v.String
			} else {
				fields[i] = ""
			}
		}
		fmt.Fprintln(outfh, strings.Join(fields, "\t"))
	}
	if err := rows.Err(); err != nil {
		return errors.Wrapf(err, "error reading %s", table)
	}
	return outfh.Flush()
}
