package cluster

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// ErrSingularCovariance is returned when a component covariance stops being
// positive definite even after regularization.
var ErrSingularCovariance = errors.New("cluster: component covariance is not positive definite")

// GMMOptions configures a Gaussian mixture fit. Zero values take defaults.
type GMMOptions struct {
	K        int
	MaxIter  int
	Tol      float64
	Seed     int64
	RegCovar float64
}

func (o GMMOptions) withDefaults() GMMOptions {
	if o.MaxIter <= 0 {
		o.MaxIter = 100
	}
	if o.Tol <= 0 {
		o.Tol = 1e-3
	}
	if o.RegCovar <= 0 {
		o.RegCovar = 1e-6
	}
	return o
}

// GaussianMixtureModel is a fitted mixture of full-covariance Gaussians.
type GaussianMixtureModel struct {
	Weights     []float64     `json:"weights"`
	Means       [][]float64   `json:"means"`
	Covariances [][][]float64 `json:"covariances"`
	// LogLikelihood is the mean per-row log-likelihood of the training data.
	LogLikelihood float64 `json:"log_likelihood"`
	Iterations    int     `json:"iterations"`
	Converged     bool    `json:"converged"`

	components []*distmv.Normal
}

// GaussianMixture fits a K-component mixture to X with expectation
// maximization, starting from a k-means partition of the rows.
func GaussianMixture(X [][]float64, opts GMMOptions) (*GaussianMixtureModel, error) {
	return GaussianMixtureContext(context.Background(), X, opts)
}

// GaussianMixtureContext is GaussianMixture that returns ctx.Err() once ctx
// is done, checked on every EM iteration.
func GaussianMixtureContext(ctx context.Context, X [][]float64, opts GMMOptions) (*GaussianMixtureModel, error) {
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

	km, err := KMeansContext(ctx, X, KMeansOptions{K: opts.K, Seed: opts.Seed, Init: InitKMeansPlusPlus})
	if err != nil {
		return nil, fmt.Errorf("initial k-means: %w", err)
	}
	n := len(X)
	resp := make([][]float64, n)
	for i := range resp {
		resp[i] = make([]float64, opts.K)
		resp[i][km.Labels[i]] = 1
	}

	m := &GaussianMixtureModel{}
	if err := m.maximize(X, resp, dim, opts.RegCovar); err != nil {
		return nil, err
	}

	prev := math.Inf(-1)
	for iter := 1; iter <= opts.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ll := m.expect(X, resp)
		m.Iterations = iter
		m.LogLikelihood = ll
		if ll-prev < opts.Tol {
			m.Converged = true
			break
		}
		prev = ll
		if err := m.maximize(X, resp, dim, opts.RegCovar); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// expect fills resp with posterior component probabilities and returns the
// mean log-likelihood.
func (m *GaussianMixtureModel) expect(X [][]float64, resp [][]float64) float64 {
	total := 0.0
	for i, row := range X {
		lse := m.logJoint(row, resp[i])
		for k := range resp[i] {
			resp[i][k] = math.Exp(resp[i][k] - lse)
		}
		total += lse
	}
	return total / float64(len(X))
}

// logJoint writes log(w_k) + log N(x | mu_k, S_k) into dst and returns their
// log-sum-exp, the row's log-likelihood.
func (m *GaussianMixtureModel) logJoint(row []float64, dst []float64) float64 {
	for k, comp := range m.components {
		if m.Weights[k] == 0 {
			dst[k] = math.Inf(-1)
			continue
		}
		dst[k] = math.Log(m.Weights[k]) + comp.LogProb(row)
	}
	return floats.LogSumExp(dst)
}

func (m *GaussianMixtureModel) maximize(X [][]float64, resp [][]float64, dim int, reg float64) error {
	k := len(resp[0])
	n := float64(len(X))
	m.Weights = make([]float64, k)
	m.Means = make([][]float64, k)
	m.Covariances = make([][][]float64, k)
	m.components = make([]*distmv.Normal, k)

	diff := make([]float64, dim)
	for c := 0; c < k; c++ {
		nk := 0.0
		mean := make([]float64, dim)
		for i, row := range X {
			nk += resp[i][c]
			floats.AddScaled(mean, resp[i][c], row)
		}
		cov := mat.NewSymDense(dim, nil)
		if nk > 1e-12 {
			floats.Scale(1/nk, mean)
			for i, row := range X {
				if resp[i][c] == 0 {
					continue
				}
				floats.SubTo(diff, row, mean)
				cov.SymRankOne(cov, resp[i][c], mat.NewVecDense(dim, append([]float64(nil), diff...)))
			}
			cov.ScaleSym(1/nk, cov)
		} else {
			// a starved component keeps a unit-variance shell at the data mean
			for j := range mean {
				mean[j] = 0
			}
			for _, row := range X {
				floats.Add(mean, row)
			}
			floats.Scale(1/n, mean)
			for j := 0; j < dim; j++ {
				cov.SetSym(j, j, 1)
			}
			nk = 0
		}
		for j := 0; j < dim; j++ {
			cov.SetSym(j, j, cov.At(j, j)+reg)
		}

		normal, ok := distmv.NewNormal(mean, cov, nil)
		if !ok {
			return fmt.Errorf("%w: component %d", ErrSingularCovariance, c)
		}
		m.Weights[c] = nk / n
		m.Means[c] = mean
		m.Covariances[c] = symToRows(cov)
		m.components[c] = normal
	}
	return nil
}

func symToRows(s *mat.SymDense) [][]float64 {
	n := s.SymmetricDim()
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = s.At(i, j)
		}
	}
	return out
}

// PredictProba returns the posterior probability of each component per row.
func (m *GaussianMixtureModel) PredictProba(X [][]float64) ([][]float64, error) {
	if err := m.check(X); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = make([]float64, len(m.components))
		lse := m.logJoint(row, out[i])
		for k := range out[i] {
			out[i][k] = math.Exp(out[i][k] - lse)
		}
	}
	return out, nil
}

// Predict labels each row with its most probable component.
func (m *GaussianMixtureModel) Predict(X [][]float64) ([]int, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(X))
	for i, p := range proba {
		labels[i] = floats.MaxIdx(p)
	}
	return labels, nil
}

// Score is the mean log-likelihood of X under the model.
func (m *GaussianMixtureModel) Score(X [][]float64) (float64, error) {
	if err := m.check(X); err != nil {
		return 0, err
	}
	buf := make([]float64, len(m.components))
	total := 0.0
	for _, row := range X {
		total += m.logJoint(row, buf)
	}
	return total / float64(len(X)), nil
}

// BIC is the Bayesian information criterion on X; lower is better.
func (m *GaussianMixtureModel) BIC(X [][]float64) (float64, error) {
	ll, err := m.Score(X)
	if err != nil {
		return 0, err
	}
	n := float64(len(X))
	return -2*ll*n + float64(m.freeParams())*math.Log(n), nil
}

// AIC is the Akaike information criterion on X; lower is better.
func (m *GaussianMixtureModel) AIC(X [][]float64) (float64, error) {
	ll, err := m.Score(X)
	if err != nil {
		return 0, err
	}
	return -2*ll*float64(len(X)) + 2*float64(m.freeParams()), nil
}

func (m *GaussianMixtureModel) freeParams() int {
	k := len(m.Means)
	if k == 0 {
		return 0
	}
	d := len(m.Means[0])
	return (k - 1) + k*d + k*d*(d+1)/2
}

func (m *GaussianMixtureModel) check(X [][]float64) error {
	if len(m.components) == 0 {
		return ErrNotFitted
	}
	dim, err := validate(X)
	if err != nil {
		return err
	}
	if dim != len(m.Means[0]) {
		return fmt.Errorf("%w: rows have %d features, model %d", ErrDimensionMismatch, dim, len(m.Means[0]))
	}
	return nil
}
