package cluster

import (
	"errors"
	"math"
	"testing"
)

func TestStandardScaler(t *testing.T) {
	X := [][]float64{{1, 5}, {2, 5}, {3, 5}}
	s := NewStandardScaler()
	out, err := s.FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}
	if s.Mean[0] != 2 {
		t.Errorf("expected mean 2, got %f", s.Mean[0])
	}
	want := math.Sqrt(2.0 / 3.0)
	if math.Abs(s.Std[0]-want) > 1e-12 {
		t.Errorf("expected population std %f, got %f", want, s.Std[0])
	}
	if math.Abs(out[0][0]+1/want) > 1e-12 || out[1][0] != 0 {
		t.Errorf("unexpected scaled column: %v", out)
	}
	for i := range out {
		if out[i][1] != 0 {
			t.Errorf("constant column should map to 0, got %f", out[i][1])
		}
	}
}

func TestMinMaxScaler(t *testing.T) {
	X := [][]float64{{0, 7}, {5, 7}, {10, 7}}
	out, err := NewMinMaxScaler().FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}
	if out[0][0] != 0 || out[1][0] != 0.5 || out[2][0] != 1 {
		t.Errorf("unexpected min-max column: %v", out)
	}
	if out[2][1] != 0 {
		t.Errorf("constant column should map to 0, got %f", out[2][1])
	}
}

func TestScalerNotFitted(t *testing.T) {
	if _, err := NewStandardScaler().Transform([][]float64{{1}}); !errors.Is(err, ErrNotFitted) {
		t.Errorf("expected ErrNotFitted, got %v", err)
	}
	if _, err := NewMinMaxScaler().Transform([][]float64{{1}}); !errors.Is(err, ErrNotFitted) {
		t.Errorf("expected ErrNotFitted, got %v", err)
	}
}

func TestScalerDimensionMismatch(t *testing.T) {
	s := NewStandardScaler()
	if err := s.Fit([][]float64{{1, 2}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Transform([][]float64{{1, 2, 3}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestNewScaler(t *testing.T) {
	if s, err := NewScaler("none"); err != nil || s != nil {
		t.Errorf("expected nil scaler for none, got %v %v", s, err)
	}
	if s, _ := NewScaler("zscore"); s == nil {
		t.Error("expected standard scaler")
	}
	if s, _ := NewScaler("minmax"); s == nil {
		t.Error("expected min-max scaler")
	}
	if _, err := NewScaler("log"); err == nil {
		t.Error("expected error for unknown scaler")
	}
}
