/*
 *  config_test.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinrue/cgat-flow"
)

func TestMergeOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "pipeline.yml")
	require.NoError(t, os.WriteFile(cfg, []byte(
		"database_name: project.db\nsailfish_kmer: 21\n"), 0644))

	p := cgatflow.NewParams()
	p.Set("database_name", "csvdb")
	p.Set("sailfish_kmer", 31)
	p.Set("sailfish_threads", 8)
	require.NoError(t, p.Merge(cfg))

	assert.Equal(t, "project.db", p.String("database_name"))
	assert.Equal(t, 21, p.Int("sailfish_kmer"))
	// untouched keys survive the merge
	assert.Equal(t, 8, p.Int("sailfish_threads"))
}

func TestMergeFlattensINISections(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "pipeline.ini")
	content := "[deeptools]\nmapping_quality = 20\n\n[general]\ndatabase_name = old.db\n"
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0644))

	p := cgatflow.NewParams()
	require.NoError(t, p.Merge(cfg))
	assert.Equal(t, 20, p.Int("deeptools_mapping_quality"))
	assert.Equal(t, "old.db", p.String("general_database_name"))
}

func TestSubstitute(t *testing.T) {
	p := cgatflow.NewParams()
	p.Set("findpeaks_style", "factor")
	p.Set("motif_size", 200)

	got := p.Substitute("findPeaks tag -style %(findpeaks_style)s -size %(motif_size)s")
	assert.Equal(t, "findPeaks tag -style factor -size 200", got)
}

func TestStringsSplitsCommaScalar(t *testing.T) {
	p := cgatflow.NewParams()
	p.Set("my_gene_info_pathway", "kegg, reactome,wikipathways")
	assert.Equal(t, []string{"kegg", "reactome", "wikipathways"},
		p.Strings("my_gene_info_pathway"))

	p.Set("my_gene_info_go", "all")
	assert.Equal(t, []string{"all"}, p.Strings("my_gene_info_go"))

	assert.Empty(t, p.Strings("unset_key"))
}

func TestDatabaseDefault(t *testing.T) {
	p := cgatflow.NewParams()
	assert.Equal(t, cgatflow.DefaultDatabase, p.Database())
	p.Set("database_name", "other.db")
	assert.Equal(t, "other.db", p.Database())
}

func TestWriteDefaultConfigRefusesOverwrite(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(wd)
	require.NoError(t, os.Chdir(t.TempDir()))

	require.NoError(t, cgatflow.WriteDefaultConfig("chipqc"))
	assert.True(t, cgatflow.FileExists(cgatflow.ConfigFile))
	assert.Error(t, cgatflow.WriteDefaultConfig("chipqc"))
}
