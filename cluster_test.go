/*
 *  cluster_test.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kevinrue/cgat-flow"
)

func TestLogTransform(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{0, 1, 3, 7})
	cgatflow.LogTransform(m)
	assert.InDelta(t, math.Log2(cgatflow.PseudoCount), m.At(0, 0), 1e-12)
	assert.InDelta(t, math.Log2(1+cgatflow.PseudoCount), m.At(0, 1), 1e-12)
}

func TestFilterZeroRows(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{
		1, 2,
		0, 0,
		0, 5,
	})
	filtered, keep := cgatflow.FilterZeroRows(m)
	assert.Equal(t, []int{0, 2}, keep)
	r, c := filtered.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 5.0, filtered.At(1, 1))
}

func TestCorrelationMatrix(t *testing.T) {
	// col1 = 2*col0, col2 = -col0
	m := mat.NewDense(4, 3, []float64{
		1, 2, -1,
		2, 4, -2,
		3, 6, -3,
		5, 10, -5,
	})
	corr := cgatflow.CorrelationMatrix(m)
	assert.InDelta(t, 1.0, corr.At(0, 1), 1e-12)
	assert.InDelta(t, -1.0, corr.At(0, 2), 1e-12)
}

func TestLeafOrderGroupsSimilarSamples(t *testing.T) {
	// samples 0 and 2 are near-identical, 1 and 3 are near-identical
	sim := mat.NewSymDense(4, []float64{
		1.0, 0.1, 0.9, 0.2,
		0.1, 1.0, 0.2, 0.8,
		0.9, 0.2, 1.0, 0.1,
		0.2, 0.8, 0.1, 1.0,
	})
	order := cgatflow.LeafOrder(sim)
	require.Len(t, order, 4)

	pos := make(map[int]int, 4)
	for i, k := range order {
		pos[k] = i
	}
	diff := func(a, b int) int {
		d := pos[a] - pos[b]
		if d < 0 {
			d = -d
		}
		return d
	}
	assert.Equal(t, 1, diff(0, 2))
	assert.Equal(t, 1, diff(1, 3))
}

func TestClassicalMDSRecoversDistances(t *testing.T) {
	// three points on a line: 0, 3, 10
	coords := []float64{0, 3, 10}
	dist := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			dist.SetSym(i, j, math.Abs(coords[i]-coords[j]))
		}
	}
	embedded, err := cgatflow.ClassicalMDS(dist, 2)
	require.NoError(t, err)

	r, c := embedded.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			dx := embedded.At(i, 0) - embedded.At(j, 0)
			dy := embedded.At(i, 1) - embedded.At(j, 1)
			assert.InDelta(t, dist.At(i, j), math.Hypot(dx, dy), 1e-9)
		}
	}
}

func TestClassicalMDSTooManyDims(t *testing.T) {
	dist := mat.NewSymDense(2, []float64{0, 1, 1, 0})
	_, err := cgatflow.ClassicalMDS(dist, 2)
	assert.Error(t, err)
}

func TestSamplePCA(t *testing.T) {
	// 6 genes x 4 samples, one gene all zero to exercise filtering
	m := mat.NewDense(6, 4, []float64{
		10, 12, 100, 110,
		20, 22, 200, 210,
		0, 0, 0, 0,
		5, 6, 50, 55,
		8, 9, 80, 88,
		15, 14, 150, 140,
	})
	result, err := cgatflow.SamplePCA(m, 3)
	require.NoError(t, err)

	r, c := result.Projections.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 3, c)

	// variance explained is sorted and sums to at most 1
	var total float64
	for i := 1; i < len(result.VarExplained); i++ {
		assert.LessOrEqual(t, result.VarExplained[i], result.VarExplained[i-1])
	}
	for _, v := range result.VarExplained {
		total += v
	}
	assert.LessOrEqual(t, total, 1.0+1e-9)
	assert.Greater(t, result.VarExplained[0], 0.5,
		"two obvious sample groups should dominate PC1")
}

func TestSamplePCAMoreSamplesThanGenes(t *testing.T) {
	// 2 genes x 4 samples: only two components exist, so a request for
	// three must be clamped rather than sliced out of range
	m := mat.NewDense(2, 4, []float64{
		10, 12, 100, 110,
		20, 18, 190, 205,
	})
	result, err := cgatflow.SamplePCA(m, 3)
	require.NoError(t, err)

	r, c := result.Projections.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 2, c)
	assert.Len(t, result.VarExplained, 2)
}

func TestEuclideanDistances(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{
		0, 3, 0,
		0, 4, 1,
	})
	dist := cgatflow.EuclideanDistances(m)
	assert.InDelta(t, 5.0, dist.At(0, 1), 1e-12)
	assert.InDelta(t, 1.0, dist.At(0, 2), 1e-12)
}

func TestExpressionDensityIntegratesToOne(t *testing.T) {
	m := &cgatflow.Matrix{
		Rows: []string{"g1", "g2", "g3", "g4"},
		Cols: []string{"s1", "s2"},
		Data: mat.NewDense(4, 2, []float64{
			0, 10,
			1, 20,
			5, 30,
			9, 40,
		}),
	}
	mids, densities := cgatflow.ExpressionDensity(m, 10)
	require.Len(t, mids, 10)
	width := mids[1] - mids[0]
	for track, density := range densities {
		var area float64
		for _, d := range density {
			area += d * width
		}
		assert.InDelta(t, 1.0, area, 1e-9, track)
	}
}
