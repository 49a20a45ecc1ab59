/*
 *  design_test.go
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

const designSample = `SampleID	bamReads	bamControl	Condition	Replicate
s1	chip1.bam	input1.bam	treated	1
s2	chip2.bam	input1.bam	treated	2
s3	chip3.bam	input2.bam	control	1
`

func writeDesign(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "design.tsv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadDesignTable(t *testing.T) {
	table, err := cgatflow.ReadDesignTable(writeDesign(t, designSample))
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "chip1.bam", table.Rows[0].BamReads)
	assert.Equal(t, "input1.bam", table.Rows[0].BamControl)
	assert.Equal(t, "treated", table.Rows[0].Condition)
	assert.Equal(t, "1", table.Rows[0].Replicate)
}

func TestReadDesignTableMissingColumn(t *testing.T) {
	_, err := cgatflow.ReadDesignTable(writeDesign(t, "bamReads\tCondition\nchip1.bam\ttreated\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bamControl")
}

func TestDesignBamLists(t *testing.T) {
	table, err := cgatflow.ReadDesignTable(writeDesign(t, designSample))
	require.NoError(t, err)

	assert.Equal(t, []string{"chip1.bam", "chip2.bam", "chip3.bam"}, table.ChipBams())
	// input1.bam is shared by two samples and appears once
	assert.Equal(t, []string{"input1.bam", "input2.bam"}, table.InputBams())
	assert.Equal(t,
		[]string{"input1.bam", "input2.bam", "chip1.bam", "chip2.bam", "chip3.bam"},
		table.AllBams())
}

func TestControlFor(t *testing.T) {
	table, err := cgatflow.ReadDesignTable(writeDesign(t, designSample))
	require.NoError(t, err)

	control, ok := table.ControlFor("chip2.bam")
	assert.True(t, ok)
	assert.Equal(t, "input1.bam", control)

	_, ok = table.ControlFor("nosuch.bam")
	assert.False(t, ok)
}

func TestReplicateGroups(t *testing.T) {
	table, err := cgatflow.ReadDesignTable(writeDesign(t, designSample))
	require.NoError(t, err)

	groups := table.ReplicateGroups()
	require.Len(t, groups, 2)
	assert.Len(t, groups["1"], 2)
	assert.Len(t, groups["2"], 1)
}
