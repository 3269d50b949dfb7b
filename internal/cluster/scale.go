package cluster

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNotFitted is returned when Transform is called before Fit.
	ErrNotFitted     = errors.New("cluster: scaler is not fitted")
	ErrUnknownScaler = errors.New("cluster: unknown scaler")
)

// Scaler learns per-feature statistics and rescales rows with them.
type Scaler interface {
	Fit(X [][]float64) error
	Transform(X [][]float64) ([][]float64, error)
	FitTransform(X [][]float64) ([][]float64, error)
}

// StandardScaler rescales each column to zero mean and unit variance.
// Constant columns keep a unit scale so they map to zero.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

func NewStandardScaler() *StandardScaler { return &StandardScaler{} }

func (s *StandardScaler) Fit(X [][]float64) error {
	dim, err := validate(X)
	if err != nil {
		return err
	}
	s.Mean = make([]float64, dim)
	s.Std = make([]float64, dim)
	col := make([]float64, len(X))
	for j := 0; j < dim; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		s.Mean[j], s.Std[j] = stat.PopMeanStdDev(col, nil)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return nil
}

func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	if s.Mean == nil {
		return nil, ErrNotFitted
	}
	return apply(X, len(s.Mean), func(j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Std[j]
	})
}

func (s *StandardScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// MinMaxScaler rescales each column onto [0, 1]. Constant columns map to 0.
type MinMaxScaler struct {
	Min []float64 `json:"min"`
	Max []float64 `json:"max"`
}

func NewMinMaxScaler() *MinMaxScaler { return &MinMaxScaler{} }

func (s *MinMaxScaler) Fit(X [][]float64) error {
	dim, err := validate(X)
	if err != nil {
		return err
	}
	s.Min = make([]float64, dim)
	s.Max = make([]float64, dim)
	col := make([]float64, len(X))
	for j := 0; j < dim; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		s.Min[j], s.Max[j] = floats.Min(col), floats.Max(col)
	}
	return nil
}

func (s *MinMaxScaler) Transform(X [][]float64) ([][]float64, error) {
	if s.Min == nil {
		return nil, ErrNotFitted
	}
	return apply(X, len(s.Min), func(j int, v float64) float64 {
		span := s.Max[j] - s.Min[j]
		if span == 0 {
			return 0
		}
		return (v - s.Min[j]) / span
	})
}

func (s *MinMaxScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// NewScaler returns the scaler registered under name, or nil for "none"/"".
func NewScaler(name string) (Scaler, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "zscore", "standard":
		return NewStandardScaler(), nil
	case "minmax":
		return NewMinMaxScaler(), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownScaler, name)
}

func apply(X [][]float64, dim int, f func(j int, v float64) float64) ([][]float64, error) {
	got, err := validate(X)
	if err != nil {
		return nil, err
	}
	if got != dim {
		return nil, fmt.Errorf("%w: rows have %d features, scaler fitted on %d", ErrDimensionMismatch, got, dim)
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = make([]float64, dim)
		for j, v := range row {
			out[i][j] = f(j, v)
		}
	}
	return out, nil
}
