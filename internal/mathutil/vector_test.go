package mathutil

import (
	"math"
	"testing"
)

func TestCosineSimilarityIdentical(t *testing.T) {
	a := []float64{1, 0, 0}
	sim := CosineSimilarity(a, a)
	if math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("expected 1.0, got %f", sim)
	}
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	sim := CosineSimilarity([]float64{1, 0, 0}, []float64{0, 1, 0})
	if math.Abs(sim) > 1e-9 {
		t.Errorf("expected 0.0, got %f", sim)
	}
}

func TestCosineSimilarityOpposite(t *testing.T) {
	sim := CosineSimilarity([]float64{1, 0, 0}, []float64{-1, 0, 0})
	if math.Abs(sim+1.0) > 1e-9 {
		t.Errorf("expected -1.0, got %f", sim)
	}
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	sim := CosineSimilarity([]float64{0, 0, 0}, []float64{1, 2, 3})
	if sim != 0 {
		t.Errorf("expected 0.0 for zero vector, got %f", sim)
	}
}

func TestNormalizeUnit(t *testing.T) {
	n := Normalize([]float64{3, 4, 0})
	if math.Abs(n[0]-0.6) > 1e-9 || math.Abs(n[1]-0.8) > 1e-9 {
		t.Errorf("unexpected normalized vector: %v", n)
	}
	if mag := CosineSimilarity(n, []float64{3, 4, 0}); math.Abs(mag-1.0) > 1e-9 {
		t.Errorf("normalized vector magnitude %f != 1.0", mag)
	}
}

func TestNormalizeZero(t *testing.T) {
	v := []float64{0, 0, 0}
	n := Normalize(v)
	for i, x := range n {
		if x != 0 {
			t.Errorf("expected zero at index %d, got %f", i, x)
		}
	}
}

func TestNormalizeDoesNotMutate(t *testing.T) {
	v := []float64{3, 4}
	Normalize(v)
	if v[0] != 3 || v[1] != 4 {
		t.Errorf("input mutated: %v", v)
	}
}

func TestMostSimilar(t *testing.T) {
	rows := [][]float64{{0, 1}, {10, 0.5}, {2, 0}, {1, 1}}
	got := MostSimilar(rows, []float64{1, 0}, 3)
	want := []int{2, 1, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSqDistAndDistance(t *testing.T) {
	a, b := []float64{0, 0}, []float64{3, 4}
	if got := SqDist(a, b); got != 25 {
		t.Errorf("expected 25, got %f", got)
	}
	if got := Distance(a, b); got != 5 {
		t.Errorf("expected 5, got %f", got)
	}
}

func TestMean(t *testing.T) {
	m := Mean([][]float64{{0, 0}, {0, 1}})
	if m[0] != 0 || m[1] != 0.5 {
		t.Errorf("expected [0 0.5], got %v", m)
	}
	if Mean(nil) != nil {
		t.Error("expected nil mean for no rows")
	}
}

func TestClosestTo(t *testing.T) {
	rows := [][]float64{{5, 5}, {1, 1}, {0, 0}, {1, 1}}
	got := ClosestTo(rows, []float64{0, 0}, 3)
	want := []int{2, 1, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if len(ClosestTo(rows, []float64{0, 0}, 10)) != 4 {
		t.Error("n larger than rows should clamp")
	}
}
