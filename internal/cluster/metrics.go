package cluster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/oho/clusterlab/internal/mathutil"
)

var (
	ErrLabelCount   = errors.New("cluster: silhouette needs between 2 and n-1 distinct labels")
	ErrLabelsLength = errors.New("cluster: label slices differ in length")
)

// Silhouette returns the mean silhouette coefficient over all rows, using
// Euclidean distance. Rows alone in their cluster score 0.
func Silhouette(X [][]float64, labels []int) (float64, error) {
	if len(X) != len(labels) {
		return 0, ErrLabelsLength
	}
	groups := make(map[int][]int)
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}
	if len(groups) < 2 || len(groups) >= len(X) {
		return 0, fmt.Errorf("%w: got %d labels for %d rows", ErrLabelCount, len(groups), len(X))
	}

	total := 0.0
	for i, row := range X {
		own := groups[labels[i]]
		if len(own) == 1 {
			continue
		}
		a := 0.0
		for _, j := range own {
			if j != i {
				a += mathutil.Distance(row, X[j])
			}
		}
		a /= float64(len(own) - 1)

		b := math.Inf(1)
		for l, members := range groups {
			if l == labels[i] {
				continue
			}
			d := 0.0
			for _, j := range members {
				d += mathutil.Distance(row, X[j])
			}
			if d /= float64(len(members)); d < b {
				b = d
			}
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(len(X)), nil
}

// Contingency counts rows per (truth class, predicted cluster) pair. Classes
// and clusters are indexed in ascending label order.
func Contingency(truth, pred []int) ([][]int, error) {
	if len(truth) != len(pred) {
		return nil, ErrLabelsLength
	}
	ti, pi := index(truth), index(pred)
	table := make([][]int, len(ti))
	for r := range table {
		table[r] = make([]int, len(pi))
	}
	for i := range truth {
		table[ti[truth[i]]][pi[pred[i]]]++
	}
	return table, nil
}

func index(labels []int) map[int]int {
	var uniq []int
	seen := make(map[int]bool)
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			uniq = append(uniq, l)
		}
	}
	sort.Ints(uniq)
	out := make(map[int]int, len(uniq))
	for i, l := range uniq {
		out[l] = i
	}
	return out
}

func comb2(n int) float64 { return float64(n) * float64(n-1) / 2 }

// AdjustedRandIndex measures agreement between two partitions, corrected for
// chance: 1 for identical partitions, around 0 for random ones.
func AdjustedRandIndex(truth, pred []int) float64 {
	table, err := Contingency(truth, pred)
	if err != nil || len(truth) < 2 {
		return 0
	}
	index, sumA, sumB := 0.0, 0.0, 0.0
	colSums := make([]int, len(table[0]))
	for _, row := range table {
		rowSum := 0
		for j, v := range row {
			index += comb2(v)
			rowSum += v
			colSums[j] += v
		}
		sumA += comb2(rowSum)
	}
	for _, v := range colSums {
		sumB += comb2(v)
	}
	expected := sumA * sumB / comb2(len(truth))
	maxIndex := (sumA + sumB) / 2
	if maxIndex == expected {
		return 1
	}
	return (index - expected) / (maxIndex - expected)
}

// Homogeneity is 1 when every cluster holds members of a single class.
func Homogeneity(truth, pred []int) float64 {
	h, _, _ := HomogeneityCompletenessV(truth, pred)
	return h
}

// Completeness is 1 when every class lands in a single cluster.
func Completeness(truth, pred []int) float64 {
	_, c, _ := HomogeneityCompletenessV(truth, pred)
	return c
}

// VMeasure is the harmonic mean of homogeneity and completeness.
func VMeasure(truth, pred []int) float64 {
	_, _, v := HomogeneityCompletenessV(truth, pred)
	return v
}

// HomogeneityCompletenessV computes all three entropy-based scores at once.
func HomogeneityCompletenessV(truth, pred []int) (h, c, v float64) {
	table, err := Contingency(truth, pred)
	if err != nil || len(truth) == 0 {
		return 0, 0, 0
	}
	n := float64(len(truth))
	rows := make([]float64, len(table))
	cols := make([]float64, len(table[0]))
	for i, row := range table {
		for j, x := range row {
			rows[i] += float64(x)
			cols[j] += float64(x)
		}
	}
	hC := stat.Entropy(probs(rows, n))
	hK := stat.Entropy(probs(cols, n))

	hCgivenK, hKgivenC := 0.0, 0.0
	for i, row := range table {
		for j, x := range row {
			if x == 0 {
				continue
			}
			p := float64(x) / n
			hCgivenK -= p * math.Log(float64(x)/cols[j])
			hKgivenC -= p * math.Log(float64(x)/rows[i])
		}
	}

	h, c = 1, 1
	if hC > 0 {
		h = 1 - hCgivenK/hC
	}
	if hK > 0 {
		c = 1 - hKgivenC/hK
	}
	if h+c > 0 {
		v = 2 * h * c / (h + c)
	}
	return h, c, v
}

func probs(counts []float64, n float64) []float64 {
	p := make([]float64, len(counts))
	for i, c := range counts {
		p[i] = c / n
	}
	return p
}

// EncodeLabels maps string classes to dense ints in first-seen order and
// returns the class names by index.
func EncodeLabels(classes []string) ([]int, []string) {
	ids := make(map[string]int)
	var names []string
	out := make([]int, len(classes))
	for i, c := range classes {
		id, ok := ids[c]
		if !ok {
			id = len(names)
			ids[c] = id
			names = append(names, c)
		}
		out[i] = id
	}
	return out, names
}

// ElbowPoint is one K of an inertia sweep.
type ElbowPoint struct {
	K          int      `json:"k"`
	Inertia    float64  `json:"inertia"`
	Silhouette *float64 `json:"silhouette,omitempty"`
}

// Elbow runs k-means for every K in [kMin, kMax] and reports the inertia,
// plus the silhouette where it is defined.
func Elbow(X [][]float64, kMin, kMax int, opts KMeansOptions) ([]ElbowPoint, error) {
	return ElbowContext(context.Background(), X, kMin, kMax, opts)
}

// ElbowContext is Elbow bounded by ctx.
func ElbowContext(ctx context.Context, X [][]float64, kMin, kMax int, opts KMeansOptions) ([]ElbowPoint, error) {
	if kMin < 1 {
		kMin = 1
	}
	if kMax > len(X) {
		kMax = len(X)
	}
	if kMax < kMin {
		return nil, fmt.Errorf("%w: empty k range [%d, %d]", ErrInvalidK, kMin, kMax)
	}
	var points []ElbowPoint
	for k := kMin; k <= kMax; k++ {
		opts.K = k
		res, err := KMeansContext(ctx, X, opts)
		if err != nil {
			return nil, fmt.Errorf("k=%d: %w", k, err)
		}
		p := ElbowPoint{K: k, Inertia: res.Inertia}
		if s, err := Silhouette(X, res.Labels); err == nil {
			p.Silhouette = &s
		}
		points = append(points, p)
	}
	return points, nil
}

// Scores bundles the metrics reported for a finished run.
type Scores struct {
	Inertia       float64  `json:"inertia"`
	Silhouette    *float64 `json:"silhouette,omitempty"`
	AdjustedRand  *float64 `json:"adjusted_rand,omitempty"`
	Homogeneity   *float64 `json:"homogeneity,omitempty"`
	Completeness  *float64 `json:"completeness,omitempty"`
	VMeasure      *float64 `json:"v_measure,omitempty"`
	LogLikelihood *float64 `json:"log_likelihood,omitempty"`
}

// Evaluate scores a labelling of X. truth may be nil when no ground truth exists.
func Evaluate(X [][]float64, labels []int, centroids [][]float64, truth []int) Scores {
	var s Scores
	if centroids != nil {
		s.Inertia = Inertia(X, labels, centroids)
	}
	if sil, err := Silhouette(X, labels); err == nil {
		s.Silhouette = &sil
	}
	if truth != nil && len(truth) == len(labels) {
		ari := AdjustedRandIndex(truth, labels)
		h, c, v := HomogeneityCompletenessV(truth, labels)
		s.AdjustedRand, s.Homogeneity, s.Completeness, s.VMeasure = &ari, &h, &c, &v
	}
	return s
}
