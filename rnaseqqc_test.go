/*
 *  rnaseqqc_test.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinrue/cgat-flow"
)

// rnaSeqQCForTest builds the task graph in a scratch directory holding two
// paired-end FASTQ tracks and one BAM
func rnaSeqQCForTest(t *testing.T, tweak func(*cgatflow.Params)) *cgatflow.RNASeqQC {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(wd) })
	require.NoError(t, os.Chdir(t.TempDir()))

	for _, name := range []string{
		"sampleA.fastq.1.gz", "sampleA.fastq.2.gz",
		"sampleB.fastq.1.gz", "sampleB.fastq.2.gz",
		"sampleA.bam",
	} {
		require.NoError(t, os.WriteFile(name, nil, 0644))
	}

	params, err := cgatflow.LoadParams("rnaseqqc")
	require.NoError(t, err)
	if tweak != nil {
		tweak(params)
	}
	r, err := cgatflow.NewRNASeqQC(params, cgatflow.Runner{Manager: "none"}, 1)
	require.NoError(t, err)
	return r
}

func TestNewRNASeqQCTaskGraph(t *testing.T) {
	r := rnaSeqQCForTest(t, nil)
	names := r.TaskNames()

	for _, want := range []string{
		"add_spike_in_transcripts",
		"make_rep_transcripts",
		"make_spliced_catalog",
		"add_spike_ins",
		"sailfish_index",
		"sailfish_quant_sampleA",
		"sailfish_quant_sampleB",
		"transform_sailfish_sampleA",
		"merge_sailfish",
		"load_sailfish",
		"dedup_bams_sampleA",
		"feature_counts_sampleA",
		"aggregate_feature_counts",
		"load_feature_counts",
	} {
		assert.Contains(t, names, want)
	}
	// no mapping database configured: the stats tasks are skipped
	assert.NotContains(t, names, "aggregate_qc")
	assert.NotContains(t, names, "load_metadata")
}

func TestRNASeqQCPairedStatements(t *testing.T) {
	r := rnaSeqQCForTest(t, nil)
	got := statement(t, r.Pipeline, "sailfish_quant_sampleA")
	assert.Contains(t, got, "-1 {i:fastq1} -2 {i:fastq2}")

	got = statement(t, r.Pipeline, "feature_counts_sampleA")
	assert.Contains(t, got, "-p -B")

	// the genome fasta sits in the working directory, one level above the
	// per-task scratch directory the statement runs in
	got = statement(t, r.Pipeline, "make_rep_transcripts")
	assert.Contains(t, got, "-g ../mm10.fa")
}

func TestRNASeqQCSingleEnd(t *testing.T) {
	r := rnaSeqQCForTest(t, func(p *cgatflow.Params) {
		p.Set("paired", false)
		p.Set("featurecounts_paired", false)
	})
	names := r.TaskNames()
	// *.fastq.1.gz tracks do not match the single-end pattern, but the
	// .2.gz mates end in .fastq.2.gz and are skipped too
	assert.NotContains(t, names, "sailfish_quant_sampleA")

	got := statement(t, r.Pipeline, "feature_counts_sampleA")
	assert.NotContains(t, got, "-p -B")
}
