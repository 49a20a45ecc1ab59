/*
 *  tracker_test.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinrue/cgat-flow"
)

func trackerTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := cgatflow.Connect(filepath.Join(t.TempDir(), "csvdb"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTPMMatrix(t *testing.T) {
	db := trackerTestDB(t)
	rows := [][]string{
		{"sample2", "geneB", "5"},
		{"sample1", "geneA", "1.5"},
		{"sample1", "geneB", "2"},
		// geneA missing from sample2, pivots to zero
	}
	require.NoError(t, cgatflow.LoadRows(db, "sailfish_genes",
		[]string{"track", "Name", "TPM"}, rows, "track", "Name"))

	m, err := cgatflow.TPMMatrix(db)
	require.NoError(t, err)
	assert.Equal(t, []string{"geneA", "geneB"}, m.Rows)
	assert.Equal(t, []string{"sample1", "sample2"}, m.Cols)
	assert.Equal(t, 1.5, m.Data.At(0, 0))
	assert.Equal(t, 0.0, m.Data.At(0, 1))
	assert.Equal(t, 5.0, m.Data.At(1, 1))
}

func TestTPMMatrixEmpty(t *testing.T) {
	db := trackerTestDB(t)
	require.NoError(t, cgatflow.LoadRows(db, "sailfish_genes",
		[]string{"track", "Name", "TPM"}, nil))
	_, err := cgatflow.TPMMatrix(db)
	assert.Error(t, err)
}

func TestFactors(t *testing.T) {
	db := trackerTestDB(t)
	rows := [][]string{
		{"sample1", "condition", "treated"},
		{"sample1", "batch", "1"},
		{"sample2", "condition", "control"},
	}
	require.NoError(t, cgatflow.LoadRows(db, "factors",
		[]string{"track", "factor", "factor_value"}, rows, "track"))

	factors, err := cgatflow.Factors(db)
	require.NoError(t, err)
	assert.Equal(t, "treated", factors["sample1"]["condition"])
	assert.Equal(t, "1", factors["sample1"]["batch"])
	assert.Equal(t, "control", factors["sample2"]["condition"])
}

func TestBiasBinnedMeans(t *testing.T) {
	db := trackerTestDB(t)
	rows := [][]string{
		{"sample1", "GC_Content", "1", "4.5"},
		{"sample1", "GC_Content", "0", "2.5"},
		{"sample1", "length", "0", "1.0"},
	}
	require.NoError(t, cgatflow.LoadRows(db, "bias_binned_means",
		[]string{"track", "bias_factor", "bin", "value"}, rows, "track"))

	bins, err := cgatflow.BiasBinnedMeans(db)
	require.NoError(t, err)
	require.Len(t, bins, 3)
	// ordered by factor, track, bin
	assert.Equal(t, cgatflow.BiasBin{Track: "sample1", Factor: "GC_Content", Bin: 0, Value: 2.5}, bins[0])
	assert.Equal(t, cgatflow.BiasBin{Track: "sample1", Factor: "GC_Content", Bin: 1, Value: 4.5}, bins[1])
	assert.Equal(t, "length", bins[2].Factor)
}

func TestReadTable(t *testing.T) {
	db := trackerTestDB(t)
	rows := [][]string{
		{"sample1", "100", "40"},
		{"sample2", "200", ""},
	}
	require.NoError(t, cgatflow.LoadRows(db, "context_stats",
		[]string{"track", "total", "intronic"}, rows))

	cols, records, err := cgatflow.ReadTable(db, "context_stats")
	require.NoError(t, err)
	assert.Equal(t, []string{"track", "total", "intronic"}, cols)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"sample1", "100", "40"}, records[0])
}
