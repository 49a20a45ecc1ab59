/*
 *  statement_test.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kevinrue/cgat-flow"
)

func TestWrapLocalPassthrough(t *testing.T) {
	r := cgatflow.Runner{Manager: "none"}
	statement := "samtools index in.bam"
	assert.Equal(t, statement, r.Wrap(statement, cgatflow.DefaultJob))
}

func TestWrapLSF(t *testing.T) {
	r := cgatflow.Runner{Manager: "lsf"}
	wrapped := r.Wrap("samtools index in.bam", cgatflow.Job{MemoryMB: 8000, Threads: 4})
	assert.Equal(t,
		"bsub -I -R'select[mem>8000] rusage[mem=8000]' -M8000 -n 4 sh -c 'samtools index in.bam'",
		wrapped)
}

func TestWrapLSFQuotesCompoundStatements(t *testing.T) {
	r := cgatflow.Runner{Manager: "lsf"}
	wrapped := r.Wrap("samtools view in.bam > out.sam && gzip out.sam", cgatflow.DefaultJob)
	// the whole statement must reach the execution host as one argument;
	// an unquoted && would run the tail on the submit host instead
	assert.Contains(t, wrapped,
		"sh -c 'samtools view in.bam > out.sam && gzip out.sam'")

	wrapped = r.Wrap(`awk '{print $1}' in.tsv`, cgatflow.DefaultJob)
	assert.Contains(t, wrapped, `sh -c 'awk '\''{print $1}'\'' in.tsv'`)
}

func TestWrapLSFDefaultsAndQueue(t *testing.T) {
	r := cgatflow.Runner{Manager: "lsf", Queue: "research"}
	wrapped := r.Wrap("echo hi", cgatflow.Job{})
	assert.Contains(t, wrapped, "-M4000 -n 1")
	assert.Contains(t, wrapped, "-q research")

	// a job queue beats the runner queue
	wrapped = r.Wrap("echo hi", cgatflow.Job{Queue: "long"})
	assert.Contains(t, wrapped, "-q long")
}

func TestWrapLSFCollapsesContinuations(t *testing.T) {
	r := cgatflow.Runner{Manager: "lsf"}
	statement := "multiBamSummary bins \\\n    --bamfiles a.bam b.bam \\\n    -out out.npz"
	wrapped := r.Wrap(statement, cgatflow.DefaultJob)
	assert.NotContains(t, wrapped, "\n")
	assert.Contains(t, wrapped, "multiBamSummary bins --bamfiles a.bam b.bam -out out.npz")
}

func TestNewRunnerLocalOverride(t *testing.T) {
	params := cgatflow.NewParams()
	params.Set("cluster_queue_manager", "lsf")
	params.Set("cluster_queue", "research")

	r := cgatflow.NewRunner(params, false)
	assert.Equal(t, "lsf", r.Manager)
	assert.Equal(t, "research", r.Queue)

	r = cgatflow.NewRunner(params, true)
	assert.Equal(t, "none", r.Manager)
}
