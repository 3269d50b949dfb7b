package mathutil

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// CosineSimilarity computes cosine similarity between two vectors.
func CosineSimilarity(a, b []float64) float64 {
	norm := floats.Norm(a, 2) * floats.Norm(b, 2)
	if norm == 0 {
		return 0
	}
	return floats.Dot(a, b) / norm
}

// Normalize normalizes a vector to unit length.
func Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	norm := floats.Norm(v, 2)
	if norm == 0 {
		return out
	}
	copy(out, v)
	floats.Scale(1/norm, out)
	return out
}

// SqDist is the squared Euclidean distance between a and b.
func SqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

// Distance is the Euclidean distance between a and b.
func Distance(a, b []float64) float64 {
	return math.Sqrt(SqDist(a, b))
}

// Mean returns the coordinate-wise mean of rows. Nil for no rows.
func Mean(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, len(rows[0]))
	for _, r := range rows {
		floats.Add(out, r)
	}
	floats.Scale(1/float64(len(rows)), out)
	return out
}

// Clone deep-copies a matrix of rows.
func Clone(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = append([]float64(nil), r...)
	}
	return out
}

// MostSimilar returns the indices of the n rows with the highest cosine
// similarity to center, most similar first.
func MostSimilar(rows [][]float64, center []float64, n int) []int {
	idx := make([]int, len(rows))
	negSims := make([]float64, len(rows))
	for i, r := range rows {
		idx[i] = i
		negSims[i] = -CosineSimilarity(r, center)
	}
	floats.ArgsortStable(negSims, idx)
	if n > len(idx) {
		n = len(idx)
	}
	return idx[:n]
}

// ClosestTo returns the indices of the n rows nearest to center, nearest first.
func ClosestTo(rows [][]float64, center []float64, n int) []int {
	idx := make([]int, len(rows))
	dists := make([]float64, len(rows))
	for i, r := range rows {
		idx[i] = i
		dists[i] = SqDist(r, center)
	}
	// ties keep the lower row index first
	floats.ArgsortStable(dists, idx)
	if n > len(idx) {
		n = len(idx)
	}
	return idx[:n]
}
