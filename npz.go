/*
 *  npz.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"archive/zip"
	"encoding/binary"
	"io"
	"regexp"
	"strings"

	"github.com/kshedden/gonpy"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// SummaryMatrix holds the bin counts written by deeptools multiBamSummary
// or multiBigwigSummary: one row per genomic bin, one column per sample
type SummaryMatrix struct {
	Labels []string
	Data   *mat.Dense
}

// ReadNpzSummary reads a deeptools .npz archive. The archive is a zip of
// two npy members, "matrix.npy" (float bins x samples) and "labels.npy"
// (fixed-width unicode sample names).
func ReadNpzSummary(filename string) (*SummaryMatrix, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %s", filename)
	}
	defer zr.Close()

	sm := new(SummaryMatrix)
	for _, member := range zr.File {
		fh, err := member.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "cannot open %s in %s", member.Name, filename)
		}
		switch member.Name {
		case "matrix.npy":
			sm.Data, err = readMatrixNpy(fh)
		case "labels.npy":
			sm.Labels, err = readUnicodeNpy(fh)
		}
		fh.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "cannot read %s from %s", member.Name, filename)
		}
	}
	if sm.Data == nil {
		return nil, errors.Errorf("%s holds no matrix.npy member", filename)
	}
	rows, cols := sm.Data.Dims()
	if len(sm.Labels) > 0 && len(sm.Labels) != cols {
		return nil, errors.Errorf("%s labels %d samples but the matrix has %d columns",
			filename, len(sm.Labels), cols)
	}
	if len(sm.Labels) == 0 {
		// deeptools always writes labels.npy, but an archive without it
		// should still chart with placeholder names
		for j := 0; j < cols; j++ {
			sm.Labels = append(sm.Labels, "sample_"+itoa(j+1))
		}
	}
	log.Noticef("Read summary matrix from %s: %d bins x %d samples", filename, rows, cols)
	return sm, nil
}

func readMatrixNpy(r io.Reader) (*mat.Dense, error) {
	rdr, err := gonpy.NewReader(r)
	if err != nil {
		return nil, err
	}
	if len(rdr.Shape) != 2 {
		return nil, errors.Errorf("expected a 2-D matrix, got shape %v", rdr.Shape)
	}
	rows, cols := rdr.Shape[0], rdr.Shape[1]

	var data []float64
	switch rdr.Dtype {
	case "f8":
		data, err = rdr.GetFloat64()
	case "f4":
		var f32 []float32
		f32, err = rdr.GetFloat32()
		if err == nil {
			data = make([]float64, len(f32))
			for i, v := range f32 {
				data[i] = float64(v)
			}
		}
	default:
		return nil, errors.Errorf("unsupported matrix dtype %s", rdr.Dtype)
	}
	if err != nil {
		return nil, err
	}

	if !rdr.ColumnMajor {
		return mat.NewDense(rows, cols, data), nil
	}
	m := mat.NewDense(rows, cols, nil)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			m.Set(i, j, data[j*rows+i])
		}
	}
	return m, nil
}

var npyHeaderRe = regexp.MustCompile(
	`'descr':\s*'([<>|=]?U(\d+))'.*'shape':\s*\((\d+),?\s*\)`)

// readUnicodeNpy decodes a 1-D numpy array of fixed-width unicode strings,
// which gonpy does not handle; labels are stored as UTF-32 code points
func readUnicodeNpy(r io.Reader) ([]string, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if string(magic[:6]) != "\x93NUMPY" {
		return nil, errors.New("not an npy stream")
	}
	var headerLen int
	if magic[6] == 1 {
		var l uint16
		if err := binary.Read(r, binary.LittleEndian, &l); err != nil {
			return nil, err
		}
		headerLen = int(l)
	} else {
		var l uint32
		if err := binary.Read(r, binary.LittleEndian, &l); err != nil {
			return nil, err
		}
		headerLen = int(l)
	}
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	m := npyHeaderRe.FindStringSubmatch(string(header))
	if m == nil {
		return nil, errors.Errorf("unsupported npy header %q", strings.TrimSpace(string(header)))
	}
	width, count := atoi(m[2]), atoi(m[3])

	labels := make([]string, 0, count)
	buf := make([]byte, 4*width)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		runes := make([]rune, 0, width)
		for j := 0; j < width; j++ {
			cp := binary.LittleEndian.Uint32(buf[4*j:])
			if cp == 0 {
				break
			}
			runes = append(runes, rune(cp))
		}
		labels = append(labels, string(runes))
	}
	return labels, nil
}
