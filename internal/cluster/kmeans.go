// Package cluster implements partition-based (k-means) and model-based
// (Gaussian mixture) clustering over dense float64 rows, together with the
// feature scalers and evaluation metrics used to judge a clustering.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/oho/clusterlab/internal/mathutil"
)

var (
	ErrEmptyInput        = errors.New("cluster: input has no rows")
	ErrInvalidK          = errors.New("cluster: k must be at least 1")
	ErrTooFewRows        = errors.New("cluster: fewer rows than clusters")
	ErrDimensionMismatch = errors.New("cluster: rows have inconsistent dimensions")
	ErrNonFinite         = errors.New("cluster: value is NaN or infinite")
)

// InitMethod selects how the starting centroids are drawn.
type InitMethod string

const (
	InitRandom         InitMethod = "random"
	InitKMeansPlusPlus InitMethod = "k-means++"
)

// EmptyClusterPolicy decides what happens to a centroid that lost all rows.
type EmptyClusterPolicy string

const (
	KeepPrevious EmptyClusterPolicy = "keep"
	Reseed       EmptyClusterPolicy = "reseed"
)

// KMeansOptions configures a k-means run. Zero values take defaults.
type KMeansOptions struct {
	K                int
	MaxIter          int
	Tol              float64
	NInit            int
	Seed             int64
	Init             InitMethod
	EmptyCluster     EmptyClusterPolicy
	InitialCentroids [][]float64
}

func (o KMeansOptions) withDefaults() KMeansOptions {
	if o.MaxIter <= 0 {
		o.MaxIter = 300
	}
	if o.Tol < 0 {
		o.Tol = 0
	} else if o.Tol == 0 {
		o.Tol = 1e-4
	}
	if o.NInit <= 0 {
		o.NInit = 1
	}
	if o.Init == "" {
		o.Init = InitRandom
	}
	if o.EmptyCluster == "" {
		o.EmptyCluster = KeepPrevious
	}
	return o
}

// Result is the outcome of a k-means run.
type Result struct {
	Labels     []int       `json:"labels"`
	Centroids  [][]float64 `json:"centroids"`
	Inertia    float64     `json:"inertia"`
	Iterations int         `json:"iterations"`
	Converged  bool        `json:"converged"`
	// History holds the objective after each update step.
	History []float64 `json:"history"`
}

// Sizes counts rows per cluster.
func (r *Result) Sizes() []int {
	sizes := make([]int, len(r.Centroids))
	for _, l := range r.Labels {
		sizes[l]++
	}
	return sizes
}

// Predict assigns rows to the nearest of the result's centroids.
func (r *Result) Predict(X [][]float64) ([]int, error) {
	return Predict(r.Centroids, X)
}

// KMeans clusters X into opts.K groups with Lloyd's method. With NInit > 1 the
// lowest-inertia restart wins; all restarts draw from one source seeded by
// opts.Seed, so a fixed seed gives identical results.
func KMeans(X [][]float64, opts KMeansOptions) (*Result, error) {
	return KMeansContext(context.Background(), X, opts)
}

// KMeansContext is KMeans that stops with ctx.Err() once ctx is done. The
// context is checked before every restart and every Lloyd iteration.
func KMeansContext(ctx context.Context, X [][]float64, opts KMeansOptions) (*Result, error) {
	opts = opts.withDefaults()
	dim, err := validate(X)
	if err != nil {
		return nil, err
	}
	if opts.K < 1 {
		return nil, ErrInvalidK
	}
	if opts.K > len(X) {
		return nil, fmt.Errorf("%w: k=%d rows=%d", ErrTooFewRows, opts.K, len(X))
	}
	if opts.InitialCentroids != nil {
		if len(opts.InitialCentroids) != opts.K {
			return nil, fmt.Errorf("%w: %d initial centroids for k=%d", ErrDimensionMismatch, len(opts.InitialCentroids), opts.K)
		}
		for _, c := range opts.InitialCentroids {
			if len(c) != dim {
				return nil, fmt.Errorf("%w: initial centroid has %d values, rows have %d", ErrDimensionMismatch, len(c), dim)
			}
		}
		// explicit centroids leave nothing to restart over
		opts.NInit = 1
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	var best *Result
	for run := 0; run < opts.NInit; run++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var centroids [][]float64
		if opts.InitialCentroids != nil {
			centroids = mathutil.Clone(opts.InitialCentroids)
		} else {
			centroids = initCentroids(X, opts.K, opts.Init, rng)
		}
		res, err := lloyd(ctx, X, centroids, opts)
		if err != nil {
			return nil, err
		}
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best, nil
}

func validate(X [][]float64) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmptyInput
	}
	dim := len(X[0])
	if dim == 0 {
		return 0, fmt.Errorf("%w: rows have no features", ErrDimensionMismatch)
	}
	for i, row := range X {
		if len(row) != dim {
			return 0, fmt.Errorf("%w: row %d has %d values, expected %d", ErrDimensionMismatch, i, len(row), dim)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("%w: row %d column %d", ErrNonFinite, i, j)
			}
		}
	}
	return dim, nil
}

func initCentroids(X [][]float64, k int, method InitMethod, rng *rand.Rand) [][]float64 {
	if method == InitKMeansPlusPlus {
		return plusPlus(X, k, rng)
	}
	perm := rng.Perm(len(X))
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64(nil), X[perm[i]]...)
	}
	return centroids
}

// plusPlus picks the first centroid uniformly and each next one with
// probability proportional to its squared distance from the chosen set.
func plusPlus(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(X)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), X[rng.Intn(n)]...))

	dists := make([]float64, n)
	for i := range X {
		dists[i] = mathutil.SqDist(X[i], centroids[0])
	}
	for len(centroids) < k {
		total := 0.0
		for _, d := range dists {
			total += d
		}
		chosen := rng.Intn(n)
		if total > 0 {
			threshold := rng.Float64() * total
			cumsum := 0.0
			for j, d := range dists {
				cumsum += d
				if cumsum >= threshold && d > 0 {
					chosen = j
					break
				}
			}
		}
		c := append([]float64(nil), X[chosen]...)
		centroids = append(centroids, c)
		for i := range X {
			if d := mathutil.SqDist(X[i], c); d < dists[i] {
				dists[i] = d
			}
		}
	}
	return centroids
}

func lloyd(ctx context.Context, X [][]float64, centroids [][]float64, opts KMeansOptions) (*Result, error) {
	n, k, dim := len(X), len(centroids), len(X[0])
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	res := &Result{}

	for iter := 1; iter <= opts.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		changed := assign(X, centroids, labels)
		if changed == 0 {
			res.Converged = true
			break
		}
		res.Iterations = iter

		counts := make([]int, k)
		sums := make([][]float64, k)
		for ci := range sums {
			sums[ci] = make([]float64, dim)
		}
		for i, row := range X {
			ci := labels[i]
			counts[ci]++
			for d, v := range row {
				sums[ci][d] += v
			}
		}

		shift := 0.0
		var empty []int
		for ci := 0; ci < k; ci++ {
			if counts[ci] == 0 {
				empty = append(empty, ci)
				continue
			}
			for d := range sums[ci] {
				sums[ci][d] /= float64(counts[ci])
			}
			shift += mathutil.SqDist(sums[ci], centroids[ci])
			centroids[ci] = sums[ci]
		}
		res.History = append(res.History, Inertia(X, labels, centroids))

		if len(empty) > 0 && opts.EmptyCluster == Reseed {
			shift += reseed(X, labels, centroids, empty)
		}
		if shift <= opts.Tol {
			res.Converged = true
			break
		}
	}

	// Labels always reflect the final centroids.
	assign(X, centroids, labels)
	res.Labels = labels
	res.Centroids = centroids
	res.Inertia = Inertia(X, labels, centroids)
	return res, nil
}

// assign moves every row to its nearest centroid, ties going to the lowest
// centroid index, and reports how many rows changed cluster.
func assign(X [][]float64, centroids [][]float64, labels []int) int {
	changed := 0
	for i, row := range X {
		best := nearest(row, centroids)
		if labels[i] != best {
			labels[i] = best
			changed++
		}
	}
	return changed
}

func nearest(row []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for ci, c := range centroids {
		if d := mathutil.SqDist(row, c); d < bestDist {
			best, bestDist = ci, d
		}
	}
	return best
}

// reseed moves each empty centroid onto the row currently farthest from its
// own centroid. Rows already used are not reused.
func reseed(X [][]float64, labels []int, centroids [][]float64, empty []int) float64 {
	used := make(map[int]bool)
	shift := 0.0
	for _, ci := range empty {
		far, farDist := -1, -1.0
		for i, row := range X {
			if used[i] {
				continue
			}
			if d := mathutil.SqDist(row, centroids[labels[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 || farDist == 0 {
			continue
		}
		used[far] = true
		next := append([]float64(nil), X[far]...)
		shift += mathutil.SqDist(next, centroids[ci])
		centroids[ci] = next
	}
	return shift
}

// Predict assigns each row of X to its nearest centroid.
func Predict(centroids [][]float64, X [][]float64) ([]int, error) {
	if len(centroids) == 0 {
		return nil, ErrInvalidK
	}
	dim, err := validate(X)
	if err != nil {
		return nil, err
	}
	if dim != len(centroids[0]) {
		return nil, fmt.Errorf("%w: rows have %d features, centroids %d", ErrDimensionMismatch, dim, len(centroids[0]))
	}
	labels := make([]int, len(X))
	for i, row := range X {
		labels[i] = nearest(row, centroids)
	}
	return labels, nil
}

// Inertia is the sum of squared distances from each row to its centroid.
func Inertia(X [][]float64, labels []int, centroids [][]float64) float64 {
	total := 0.0
	for i, row := range X {
		total += mathutil.SqDist(row, centroids[labels[i]])
	}
	return total
}

// AutoK picks a cluster count for n items when none is given: n/3 clamped
// to [2, 20] and never above n.
func AutoK(n int) int {
	k := n / 3
	if k < 2 {
		k = 2
	}
	if k > 20 {
		k = 20
	}
	if k > n {
		k = n
	}
	if k < 1 {
		k = 1
	}
	return k
}
