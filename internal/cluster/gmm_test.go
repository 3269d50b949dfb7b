package cluster

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
)

func twoGaussians(seed int64, perCluster int) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	var X [][]float64
	var truth []int
	for i := 0; i < perCluster; i++ {
		X = append(X, []float64{rng.NormFloat64(), rng.NormFloat64() * 0.5})
		truth = append(truth, 0)
		X = append(X, []float64{8 + rng.NormFloat64()*0.5, 8 + rng.NormFloat64()})
		truth = append(truth, 1)
	}
	return X, truth
}

func TestGaussianMixtureSeparatesBlobs(t *testing.T) {
	X, truth := twoGaussians(1, 100)
	m, err := GaussianMixture(X, GMMOptions{K: 2, Seed: 3})
	if err != nil {
		t.Fatalf("GaussianMixture: %v", err)
	}
	labels, err := m.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	if ari := AdjustedRandIndex(truth, labels); ari < 0.99 {
		t.Errorf("expected near-perfect recovery, ARI %f", ari)
	}
	for k, w := range m.Weights {
		if math.Abs(w-0.5) > 0.05 {
			t.Errorf("component %d weight %f, expected about 0.5", k, w)
		}
	}
	for _, mean := range m.Means {
		near0 := math.Abs(mean[0]) < 0.5 && math.Abs(mean[1]) < 0.5
		near8 := math.Abs(mean[0]-8) < 0.5 && math.Abs(mean[1]-8) < 0.5
		if !near0 && !near8 {
			t.Errorf("unexpected component mean %v", mean)
		}
	}
	if len(m.Covariances[0]) != 2 || m.Covariances[0][0][1] != m.Covariances[0][1][0] {
		t.Errorf("covariance should be symmetric 2x2: %v", m.Covariances[0])
	}
}

func TestGaussianMixtureProbabilitiesSumToOne(t *testing.T) {
	X, _ := twoGaussians(2, 40)
	m, err := GaussianMixture(X, GMMOptions{K: 3, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	proba, err := m.PredictProba(X)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range proba {
		sum := 0.0
		for _, v := range p {
			if v < 0 || v > 1 {
				t.Fatalf("row %d probability out of range: %v", i, p)
			}
			sum += v
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("row %d probabilities sum to %f", i, sum)
		}
	}
}

func TestGaussianMixtureInformationCriteria(t *testing.T) {
	X, _ := twoGaussians(4, 100)
	one, err := GaussianMixture(X, GMMOptions{K: 1, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	two, err := GaussianMixture(X, GMMOptions{K: 2, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	b1, _ := one.BIC(X)
	b2, _ := two.BIC(X)
	if b2 >= b1 {
		t.Errorf("two components should have lower BIC on two blobs: %f >= %f", b2, b1)
	}
	a2, _ := two.AIC(X)
	if a2 >= b2 {
		t.Errorf("AIC penalty should be below BIC for n=200: aic %f bic %f", a2, b2)
	}
}

func TestGaussianMixtureDeterministic(t *testing.T) {
	X, _ := twoGaussians(5, 50)
	a, err := GaussianMixture(X, GMMOptions{K: 2, Seed: 8})
	if err != nil {
		t.Fatal(err)
	}
	b, err := GaussianMixture(X, GMMOptions{K: 2, Seed: 8})
	if err != nil {
		t.Fatal(err)
	}
	if a.LogLikelihood != b.LogLikelihood {
		t.Errorf("log-likelihood differs: %f vs %f", a.LogLikelihood, b.LogLikelihood)
	}
}

func TestGaussianMixtureContextCancelled(t *testing.T) {
	X, _ := twoGaussians(2, 50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := GaussianMixtureContext(ctx, X, GMMOptions{K: 2, Seed: 1}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGaussianMixtureErrors(t *testing.T) {
	if _, err := GaussianMixture(nil, GMMOptions{K: 2}); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
	if _, err := GaussianMixture([][]float64{{1}}, GMMOptions{K: 2}); !errors.Is(err, ErrTooFewRows) {
		t.Errorf("expected ErrTooFewRows, got %v", err)
	}
	if _, err := GaussianMixture([][]float64{{1}, {math.NaN()}}, GMMOptions{K: 1}); !errors.Is(err, ErrNonFinite) {
		t.Errorf("expected ErrNonFinite, got %v", err)
	}
	m := &GaussianMixtureModel{}
	if _, err := m.Predict([][]float64{{1}}); !errors.Is(err, ErrNotFitted) {
		t.Errorf("expected ErrNotFitted, got %v", err)
	}
}
