/*
 *  geneinfo_test.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinrue/cgat-flow"
)

func TestBuildPathQuery(t *testing.T) {
	query := cgatflow.BuildPathQuery(
		[]string{"Gene.symbol", "Gene.pathways.identifier"},
		"Gene.symbol", []string{"Trp53", "A<B"})
	assert.Contains(t, query, `view="Gene.symbol Gene.pathways.identifier"`)
	assert.Contains(t, query, `<constraint path="Gene.symbol" op="ONE OF">`)
	assert.Contains(t, query, "<value>Trp53</value>")
	assert.Contains(t, query, "<value>A&lt;B</value>")
}

func TestReadGeneList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genes.tsv")
	require.NoError(t, os.WriteFile(path, []byte("TP53\n\nBRCA1\n  \nEGFR\n"), 0644))
	genes, err := cgatflow.ReadGeneList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"TP53", "BRCA1", "EGFR"}, genes)
}

func testGeneInfo(t *testing.T, mygeneURL string) *cgatflow.GeneInfo {
	t.Helper()
	params := cgatflow.NewParams()
	params.Set("database_name", filepath.Join(t.TempDir(), "csvdb"))
	params.Set("entrez_host", "9606")
	params.Set("my_gene_info_go", "all")
	params.Set("my_gene_info_pathway", "all")
	params.Set("my_gene_info_homologene", "all")
	return cgatflow.NewGeneInfoForTest(
		cgatflow.NewPipeline("geneinfo", params, cgatflow.Runner{Manager: "local"}, 1),
		cgatflow.NewMyGeneClient(mygeneURL))
}

func queryTable(t *testing.T, db *sql.DB, query string) [][]string {
	t.Helper()
	rows, err := db.Query(query)
	require.NoError(t, err)
	defer rows.Close()
	cols, err := rows.Columns()
	require.NoError(t, err)
	var out [][]string
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		require.NoError(t, rows.Scan(ptrs...))
		rec := make([]string, len(cols))
		for i, v := range values {
			rec[i] = v.String
		}
		out = append(out, rec)
	}
	return out
}

func TestAnnotatePathway(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "symbol", r.Form.Get("scopes"))
		hits := []map[string]interface{}{
			{
				"query": "TP53",
				"pathway": map[string]interface{}{
					"kegg":         []map[string]string{{"id": "hsa04115", "name": "p53 signaling"}},
					"wikipathways": map[string]string{"id": "WP707", "name": "DNA damage response"},
				},
				"ensembl": map[string]interface{}{"gene": "ENSG00000141510"},
			},
			{"query": "MISSING", "notfound": true},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(hits))
	}))
	defer server.Close()

	g := testGeneInfo(t, server.URL)
	require.NoError(t, g.AnnotatePathway(context.Background(), []string{"TP53", "MISSING"}))

	db, err := cgatflow.Connect(g.Params.Database())
	require.NoError(t, err)
	defer db.Close()

	annot := queryTable(t, db, `SELECT ensemblg, kegg FROM "ensemblg2kegg$annot"`)
	assert.Equal(t, [][]string{{"ENSG00000141510", "hsa04115"}}, annot)
	details := queryTable(t, db, `SELECT wikipathways, name FROM "wikipathways$details"`)
	assert.Equal(t, [][]string{{"WP707", "DNA damage response"}}, details)
}

func TestMakeSubsetDB(t *testing.T) {
	dir := t.TempDir()
	maindb := filepath.Join(dir, "csvdb")

	db, err := cgatflow.Connect(maindb)
	require.NoError(t, err)
	symbolRows := [][]string{
		{"ENSG01", "TP53"},
		{"ENSG02", "BRCA1"},
		{"ENSG03", "EGFR"},
	}
	require.NoError(t, cgatflow.LoadRows(db, "ensemblg2symbol_9606$geneid",
		[]string{"ensemblg", "symbol_9606"}, symbolRows, "ensemblg"))
	annotRows := [][]string{
		{"ENSG01", "GO:0006915"},
		{"ENSG02", "GO:0006281"},
		{"ENSG03", "GO:0007173"},
	}
	require.NoError(t, cgatflow.LoadRows(db, "ensemblg2go$annot",
		[]string{"ensemblg", "go"}, annotRows, "ensemblg"))
	require.NoError(t, cgatflow.LoadRows(db, "go$details",
		[]string{"go", "term", "category"},
		[][]string{{"GO:0006915", "apoptotic process", "BP"}}, "go"))
	require.NoError(t, db.Close())

	subpath := filepath.Join(dir, "subset.db")
	err = cgatflow.MakeSubsetDB(maindb, subpath, "symbol_9606", []string{"TP53", "BRCA1"})
	require.NoError(t, err)

	sub, err := cgatflow.Connect(subpath)
	require.NoError(t, err)
	defer sub.Close()

	annot := queryTable(t, sub, `SELECT ensemblg FROM "ensemblg2go$annot" ORDER BY ensemblg`)
	assert.Equal(t, [][]string{{"ENSG01"}, {"ENSG02"}}, annot)
	// tables without an ensemblg column are copied whole
	details := queryTable(t, sub, `SELECT term FROM "go$details"`)
	assert.Equal(t, [][]string{{"apoptotic process"}}, details)
}

func TestMakeSubsetDBNoTranslation(t *testing.T) {
	dir := t.TempDir()
	maindb := filepath.Join(dir, "csvdb")
	db, err := cgatflow.Connect(maindb)
	require.NoError(t, err)
	require.NoError(t, cgatflow.LoadRows(db, "ensemblg2symbol_9606$geneid",
		[]string{"ensemblg", "symbol_9606"}, [][]string{{"ENSG01", "TP53"}}, "ensemblg"))
	require.NoError(t, db.Close())

	err = cgatflow.MakeSubsetDB(maindb, filepath.Join(dir, "out.db"), "symbol_9606",
		[]string{"NOSUCHGENE"})
	assert.Error(t, err)
}
