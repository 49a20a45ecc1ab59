/*
 *  bam.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"io"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
)

// pairedProbeReads is how many alignments are inspected before deciding
// whether a BAM contains paired-end reads
const pairedProbeReads = 1000

// IsPairedBam reports whether the first alignments of a BAM file carry the
// paired flag. Pipelines use this to toggle paired-end options on the tools
// they drive (featureCounts -p, bamPEFragmentSize).
func IsPairedBam(bamfile string) (bool, error) {
	fh, err := os.Open(bamfile)
	if err != nil {
		return false, errors.Wrapf(err, "cannot open bamfile %s", bamfile)
	}
	defer fh.Close()

	br, err := bam.NewReader(fh, 0)
	if err != nil {
		return false, errors.Wrapf(err, "cannot read bamfile %s", bamfile)
	}
	defer br.Close()

	for i := 0; i < pairedProbeReads; i++ {
		rec, err := br.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, errors.Wrapf(err, "error reading bamfile %s", bamfile)
		}
		if rec.Flags&sam.Paired != 0 {
			return true, nil
		}
	}
	return false, nil
}
