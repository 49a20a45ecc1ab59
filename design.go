/*
 *  design.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"os"

	"github.com/pkg/errors"
)

// DesignFile is the canonical name of the experimental design table
const DesignFile = "design.tsv"

// DesignRow describes one ChIP sample: the experimental BAM, its matched
// input (control) BAM, and the condition/replicate it belongs to
type DesignRow struct {
	BamReads   string
	BamControl string
	Condition  string
	Replicate  string
}

// DesignTable is the parsed design.tsv describing sample/condition/replicate
// relationships for a ChIP-seq experiment
type DesignTable struct {
	Rows []DesignRow
}

// ReadDesignTable parses a design file. The header row must name at least
// bamReads and bamControl; Condition and Replicate are optional. A missing
// file is not an error here: callers degrade to empty input lists.
func ReadDesignTable(filename string) (*DesignTable, error) {
	fh, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open design table %s", filename)
	}
	defer fh.Close()

	records, err := readTSV(fh, false)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse design table %s", filename)
	}
	if len(records) == 0 {
		return nil, errors.Errorf("design table %s is empty", filename)
	}

	cols := map[string]int{}
	for i, name := range records[0] {
		cols[name] = i
	}
	for _, required := range []string{"bamReads", "bamControl"} {
		if _, ok := cols[required]; !ok {
			return nil, errors.Errorf("design table %s lacks column %s", filename, required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	t := &DesignTable{}
	for _, rec := range records[1:] {
		t.Rows = append(t.Rows, DesignRow{
			BamReads:   field(rec, "bamReads"),
			BamControl: field(rec, "bamControl"),
			Condition:  field(rec, "Condition"),
			Replicate:  field(rec, "Replicate"),
		})
	}
	return t, nil
}

// LoadDesignTable reads design.tsv from the working directory. An absent
// file degrades to an empty design with a warning so that task lists come
// out empty instead of aborting.
func LoadDesignTable() *DesignTable {
	if !FileExists(DesignFile) {
		log.Warningf("%s is not located within the folder", DesignFile)
		return &DesignTable{}
	}
	t, err := ReadDesignTable(DesignFile)
	if err != nil {
		log.Fatal(err)
	}
	return t
}

// ChipBams lists the experimental BAM files, in design order
func (t *DesignTable) ChipBams() []string {
	bams := []string{}
	for _, row := range t.Rows {
		if row.BamReads != "" {
			bams = append(bams, row.BamReads)
		}
	}
	return unique(bams)
}

// InputBams lists the control BAM files, in design order
func (t *DesignTable) InputBams() []string {
	bams := []string{}
	for _, row := range t.Rows {
		if row.BamControl != "" {
			bams = append(bams, row.BamControl)
		}
	}
	return unique(bams)
}

// AllBams lists control then experimental BAM files
func (t *DesignTable) AllBams() []string {
	return append(t.InputBams(), t.ChipBams()...)
}

// ControlFor resolves the input BAM matched to an experimental BAM
func (t *DesignTable) ControlFor(chipBam string) (string, bool) {
	for _, row := range t.Rows {
		if row.BamReads == chipBam {
			return row.BamControl, row.BamControl != ""
		}
	}
	return "", false
}

// ReplicateGroups maps each replicate label to the design rows carrying it
func (t *DesignTable) ReplicateGroups() map[string][]DesignRow {
	groups := map[string][]DesignRow{}
	for _, row := range t.Rows {
		groups[row.Replicate] = append(groups[row.Replicate], row)
	}
	return groups
}
