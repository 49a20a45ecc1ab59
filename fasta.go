/*
 *  fasta.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"io"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"
)

// fastaWidth is the line width of the FASTA files we write
const fastaWidth = 60

// SpliceToCDNA reads a pre-mRNA FASTA in which introns are soft-masked
// (lower case) and writes the spliced cDNA catalog: lower-case bases are
// dropped, records with no exonic sequence left are skipped
func SpliceToCDNA(infile, outfile string) error {
	reader, err := fastx.NewDefaultReader(infile)
	if err != nil {
		return errors.Wrapf(err, "cannot open %s", infile)
	}
	outfh, err := xopen.Wopen(outfile)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", outfile)
	}
	defer outfh.Close()

	var nrecords, nskipped int
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "cannot read %s", infile)
		}
		spliced := spliceUpper(rec.Seq.Seq)
		if len(spliced) == 0 {
			nskipped++
			continue
		}
		writeFastaRecord(outfh, string(rec.Name), spliced)
		nrecords++
	}
	log.Noticef("Spliced %d transcripts into %s (%d intron-only records skipped)",
		nrecords, outfile, nskipped)
	return outfh.Flush()
}

// spliceUpper keeps the upper-case (exonic) bases of a soft-masked sequence
func spliceUpper(seq []byte) []byte {
	out := make([]byte, 0, len(seq))
	for _, b := range seq {
		if b >= 'A' && b <= 'Z' {
			out = append(out, b)
		}
	}
	return out
}

// ConcatFasta appends FASTA files (gzip transparent) into outfile,
// re-wrapping sequence lines; used to mix ERCC spike-ins into the
// transcript catalog
func ConcatFasta(outfile string, infiles ...string) error {
	outfh, err := xopen.Wopen(outfile)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", outfile)
	}
	defer outfh.Close()

	for _, infile := range infiles {
		reader, err := fastx.NewDefaultReader(infile)
		if err != nil {
			return errors.Wrapf(err, "cannot open %s", infile)
		}
		for {
			rec, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return errors.Wrapf(err, "cannot read %s", infile)
			}
			writeFastaRecord(outfh, string(rec.Name), rec.Seq.Seq)
		}
	}
	return outfh.Flush()
}

func writeFastaRecord(w io.Writer, name string, seq []byte) {
	io.WriteString(w, ">"+name+"\n")
	for i := 0; i < len(seq); i += fastaWidth {
		end := i + fastaWidth
		if end > len(seq) {
			end = len(seq)
		}
		w.Write(seq[i:end])
		io.WriteString(w, "\n")
	}
}
