/*
 *  npz_test.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow_test

import (
	"archive/zip"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/kshedden/gonpy"

	"github.com/kevinrue/cgat-flow"
)

// nopCloser adapts a zip entry writer to the io.WriteCloser gonpy wants
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// encodeUnicodeNpy writes a 1-D fixed-width unicode npy array, the layout
// numpy uses for the deeptools sample labels
func encodeUnicodeNpy(labels []string) []byte {
	width := 1
	for _, l := range labels {
		if n := len([]rune(l)); n > width {
			width = n
		}
	}
	header := "{'descr': '<U" + strconv.Itoa(width) + "', 'fortran_order': False, 'shape': (" +
		strconv.Itoa(len(labels)) + ",), }"
	for (10+len(header)+1)%16 != 0 {
		header += " "
	}
	header += "\n"

	out := []byte("\x93NUMPY\x01\x00")
	out = append(out, byte(len(header)), byte(len(header)>>8))
	out = append(out, header...)
	buf := make([]byte, 4)
	for _, l := range labels {
		runes := []rune(l)
		for j := 0; j < width; j++ {
			var cp uint32
			if j < len(runes) {
				cp = uint32(runes[j])
			}
			binary.LittleEndian.PutUint32(buf, cp)
			out = append(out, buf...)
		}
	}
	return out
}

func writeTestNpz(t *testing.T, labels []string, rows, cols int, data []float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "summary.npz")
	fh, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	zw := zip.NewWriter(fh)

	mw, err := zw.Create("matrix.npy")
	if err != nil {
		t.Fatal(err)
	}
	npy, err := gonpy.NewWriter(nopCloser{mw})
	if err != nil {
		t.Fatal(err)
	}
	npy.Shape = []int{rows, cols}
	if err := npy.WriteFloat64(data); err != nil {
		t.Fatal(err)
	}

	if len(labels) > 0 {
		lw, err := zw.Create("labels.npy")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := lw.Write(encodeUnicodeNpy(labels)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadNpzSummary(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	path := writeTestNpz(t, []string{"chip-R1.bam", "input.bam"}, 3, 2, data)

	sm, err := cgatflow.ReadNpzSummary(path)
	if err != nil {
		t.Fatal(err)
	}
	rows, cols := sm.Data.Dims()
	if rows != 3 || cols != 2 {
		t.Fatalf("expected 3x2 matrix, got %dx%d", rows, cols)
	}
	if len(sm.Labels) != 2 || sm.Labels[0] != "chip-R1.bam" {
		t.Errorf("labels not decoded: %v", sm.Labels)
	}
	if got := sm.Data.At(1, 0); math.Abs(got-3) > 1e-12 {
		t.Errorf("row-major layout mangled: At(1,0) = %v", got)
	}
}

func TestReadNpzSummaryLabelMismatch(t *testing.T) {
	path := writeTestNpz(t, []string{"only-one.bam"}, 2, 2, []float64{1, 2, 3, 4})
	if _, err := cgatflow.ReadNpzSummary(path); err == nil {
		t.Error("expected error when labels disagree with matrix width")
	}
}

func TestReadNpzSummaryWithoutLabels(t *testing.T) {
	path := writeTestNpz(t, nil, 2, 2, []float64{1, 2, 3, 4})
	sm, err := cgatflow.ReadNpzSummary(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(sm.Labels) != 2 || sm.Labels[0] != "sample_1" {
		t.Errorf("expected generated labels, got %v", sm.Labels)
	}
}
