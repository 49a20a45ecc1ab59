/*
 *  tracker.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"database/sql"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a labelled numeric table extracted from the pipeline database,
// genes (or bins) down the rows and sample tracks across the columns
type Matrix struct {
	Rows []string
	Cols []string
	Data *mat.Dense
}

// TPMMatrix pivots the long-form sailfish_genes table into a genes x
// samples TPM matrix. Genes absent from a sample get zero.
func TPMMatrix(db *sql.DB) (*Matrix, error) {
	rows, err := db.Query(`SELECT track, Name, TPM FROM sailfish_genes`)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read sailfish_genes")
	}
	defer rows.Close()

	values := map[string]map[string]float64{}
	trackSeen := map[string]bool{}
	geneSeen := map[string]bool{}
	for rows.Next() {
		var track, gene string
		var tpm float64
		if err := rows.Scan(&track, &gene, &tpm); err != nil {
			return nil, err
		}
		if values[gene] == nil {
			values[gene] = map[string]float64{}
		}
		values[gene][track] = tpm
		trackSeen[track] = true
		geneSeen[gene] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(geneSeen) == 0 {
		return nil, errors.New("sailfish_genes is empty")
	}

	m := &Matrix{Rows: sortedKeys(geneSeen), Cols: sortedKeys(trackSeen)}
	m.Data = mat.NewDense(len(m.Rows), len(m.Cols), nil)
	for i, gene := range m.Rows {
		for j, track := range m.Cols {
			m.Data.Set(i, j, values[gene][track])
		}
	}
	return m, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Factors returns the experimental factor assignments per track from the
// factors table, track -> factor -> level
func Factors(db *sql.DB) (map[string]map[string]string, error) {
	rows, err := db.Query(`SELECT track, factor, factor_value FROM factors`)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read factors")
	}
	defer rows.Close()
	out := map[string]map[string]string{}
	for rows.Next() {
		var track, factor, level string
		if err := rows.Scan(&track, &factor, &level); err != nil {
			return nil, err
		}
		if out[track] == nil {
			out[track] = map[string]string{}
		}
		out[track][factor] = level
	}
	return out, rows.Err()
}

// BiasBin is one binned mean from the expression bias table
type BiasBin struct {
	Track  string
	Factor string
	Bin    int
	Value  float64
}

// BiasBinnedMeans reads per-bin mean expression grouped by a bias factor
// such as GC content or transcript length
func BiasBinnedMeans(db *sql.DB) ([]BiasBin, error) {
	rows, err := db.Query(
		`SELECT track, bias_factor, bin, value FROM bias_binned_means ORDER BY bias_factor, track, bin`)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read bias_binned_means")
	}
	defer rows.Close()
	var out []BiasBin
	for rows.Next() {
		var b BiasBin
		if err := rows.Scan(&b.Track, &b.Factor, &b.Bin, &b.Value); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ExpressionDensity bins the log2(TPM + pseudocount) values of each sample
// into nbins equal-width bins spanning the global range and returns the
// bin midpoints plus one density series per sample
func ExpressionDensity(m *Matrix, nbins int) ([]float64, map[string][]float64) {
	logged := mat.DenseCopyOf(m.Data)
	LogTransform(logged)

	lo, hi := mat.Min(logged), mat.Max(logged)
	if hi <= lo {
		hi = lo + 1
	}
	width := (hi - lo) / float64(nbins)
	mids := make([]float64, nbins)
	for i := range mids {
		mids[i] = lo + (float64(i)+0.5)*width
	}

	nGenes, _ := logged.Dims()
	densities := map[string][]float64{}
	for j, track := range m.Cols {
		counts := make([]float64, nbins)
		for i := 0; i < nGenes; i++ {
			bin := int((logged.At(i, j) - lo) / width)
			if bin >= nbins {
				bin = nbins - 1
			}
			counts[bin]++
		}
		for i := range counts {
			counts[i] /= float64(nGenes) * width
		}
		densities[track] = counts
	}
	return mids, densities
}

// ReadTable extracts a whole table in column order, for passthrough report
// pages such as the mapping context stats
func ReadTable(db *sql.DB, table string) ([]string, [][]string, error) {
	rows, err := db.Query("SELECT * FROM " + quoteIdent(table))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot read table %s", table)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var records [][]string
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		rec := make([]string, len(cols))
		for i, v := range values {
			if v.Valid {
				rec[i] = v.String
			} else {
				rec[i] = "na"
			}
		}
		records = append(records, rec)
	}
	return cols, records, rows.Err()
}
