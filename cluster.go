/*
 *  cluster.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// merge is one candidate pair in the agglomeration queue
type merge struct {
	a     int
	b     int
	score float64
}

// LogTransform replaces every entry x with log2(x + PseudoCount), the
// standard variance-stabilizing transform for TPM-like values
func LogTransform(m *mat.Dense) {
	m.Apply(func(_, _ int, v float64) float64 {
		return math.Log2(v + PseudoCount)
	}, m)
}

// FilterZeroRows drops rows that are zero in every column and returns the
// surviving row indexes alongside the reduced matrix
func FilterZeroRows(m *mat.Dense) (*mat.Dense, []int) {
	r, c := m.Dims()
	var keep []int
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) != 0 {
				keep = append(keep, i)
				break
			}
		}
	}
	out := mat.NewDense(len(keep), c, nil)
	for oi, i := range keep {
		out.SetRow(oi, mat.Row(nil, i, m))
	}
	return out, keep
}

// ScaleUnitVariance centers each column and scales it to unit variance.
// Constant columns are left centered only.
func ScaleUnitVariance(m *mat.Dense) {
	r, c := m.Dims()
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, m)
		mean, std := stat.MeanStdDev(col, nil)
		for i := 0; i < r; i++ {
			v := col[i] - mean
			if std > 0 {
				v /= std
			}
			m.Set(i, j, v)
		}
	}
}

// CorrelationMatrix returns the Pearson correlation between the columns
// of m (one column per sample)
func CorrelationMatrix(m *mat.Dense) *mat.SymDense {
	_, c := m.Dims()
	corr := mat.NewSymDense(c, nil)
	stat.CorrelationMatrix(corr, m, nil)
	return corr
}

// EuclideanDistances returns the pairwise euclidean distance between the
// columns of m
func EuclideanDistances(m *mat.Dense) *mat.SymDense {
	r, c := m.Dims()
	dist := mat.NewSymDense(c, nil)
	for i := 0; i < c; i++ {
		for j := i + 1; j < c; j++ {
			var sum float64
			for k := 0; k < r; k++ {
				d := m.At(k, i) - m.At(k, j)
				sum += d * d
			}
			dist.SetSym(i, j, math.Sqrt(sum))
		}
	}
	return dist
}

// LeafOrder performs average-linkage agglomerative clustering over a
// similarity matrix and returns a leaf ordering that places similar
// samples next to each other. The merge queue is scanned linearly; for
// the handful of samples a QC report sees, a priority queue buys nothing.
func LeafOrder(sim *mat.SymDense) []int {
	n := sim.SymmetricDim()
	if n < 3 {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return order
	}

	// Each cluster holds its members in leaf order
	clusters := make(map[int][]int, n)
	for i := 0; i < n; i++ {
		clusters[i] = []int{i}
	}

	var merges []*merge
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			merges = append(merges, &merge{a: i, b: j, score: sim.At(i, j)})
		}
	}

	nextID := n
	for len(clusters) > 1 {
		best := merges[0]
		for _, m := range merges {
			if m.score > best.score {
				best = m
			}
		}

		merged := append(append([]int{}, clusters[best.a]...), clusters[best.b]...)
		sizeA, sizeB := len(clusters[best.a]), len(clusters[best.b])
		delete(clusters, best.a)
		delete(clusters, best.b)

		// Drop merges touching the consumed clusters, then score the new
		// cluster against the survivors by average linkage
		var kept []*merge
		for _, m := range merges {
			if _, ok := clusters[m.a]; !ok {
				continue
			}
			if _, ok := clusters[m.b]; !ok {
				continue
			}
			kept = append(kept, m)
		}
		for id, members := range clusters {
			var total float64
			for _, i := range merged {
				for _, j := range members {
					total += sim.At(i, j)
				}
			}
			kept = append(kept, &merge{
				a:     id,
				b:     nextID,
				score: total / float64(sizeA+sizeB) / float64(len(members)),
			})
		}
		clusters[nextID] = merged
		nextID++
		merges = kept
	}

	for _, members := range clusters {
		return members
	}
	return nil
}

// ClassicalMDS embeds a distance matrix into ndim dimensions by double
// centering and eigendecomposition (Torgerson scaling). Rows of the
// result correspond to the rows of dist.
func ClassicalMDS(dist *mat.SymDense, ndim int) (*mat.Dense, error) {
	n := dist.SymmetricDim()
	if ndim >= n {
		return nil, errors.Errorf("cannot embed %d points into %d dimensions", n, ndim)
	}

	// B = -0.5 * J * D^2 * J with J the centering matrix
	b := mat.NewSymDense(n, nil)
	rowMeans := make([]float64, n)
	var grandMean float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d2 := dist.At(i, j) * dist.At(i, j)
			rowMeans[i] += d2
			grandMean += d2
		}
		rowMeans[i] /= float64(n)
	}
	grandMean /= float64(n * n)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			d2 := dist.At(i, j) * dist.At(i, j)
			b.SetSym(i, j, -0.5*(d2-rowMeans[i]-rowMeans[j]+grandMean))
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(b, true) {
		return nil, errors.New("MDS eigendecomposition failed")
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// Largest eigenvalues first
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return values[idx[i]] > values[idx[j]] })

	out := mat.NewDense(n, ndim, nil)
	for d := 0; d < ndim; d++ {
		k := idx[d]
		if values[k] <= 0 {
			continue
		}
		scale := math.Sqrt(values[k])
		for i := 0; i < n; i++ {
			out.Set(i, d, vectors.At(i, k)*scale)
		}
	}
	return out, nil
}

// PCAResult carries sample projections and the variance explained by each
// principal component, ordered by decreasing variance
type PCAResult struct {
	Projections  *mat.Dense
	VarExplained []float64
}

// SamplePCA runs a principal component analysis over a genes x samples
// matrix: all-zero genes are removed, values are log transformed and
// scaled to unit variance per gene, then samples are projected onto the
// first ncomp components.
func SamplePCA(m *mat.Dense, ncomp int) (*PCAResult, error) {
	filtered, _ := FilterZeroRows(m)
	LogTransform(filtered)

	// Observations are samples, variables are genes
	obs := mat.DenseCopyOf(filtered.T())
	ScaleUnitVariance(obs)

	nSamples, nGenes := obs.Dims()
	var pc stat.PC
	if !pc.PrincipalComponents(obs, nil) {
		return nil, errors.New("PCA failed to converge")
	}
	variances := pc.VarsTo(nil)
	// stat.PC yields min(nSamples, nGenes) components
	if ncomp > len(variances) {
		ncomp = len(variances)
	}
	var total float64
	for _, v := range variances {
		total += v
	}
	varExp := make([]float64, ncomp)
	for i := 0; i < ncomp && i < len(variances); i++ {
		if total > 0 {
			varExp[i] = variances[i] / total
		}
	}

	var vectors mat.Dense
	pc.VectorsTo(&vectors)
	proj := mat.NewDense(nSamples, ncomp, nil)
	proj.Mul(obs, vectors.Slice(0, nGenes, 0, ncomp))
	return &PCAResult{Projections: proj, VarExplained: varExp}, nil
}
