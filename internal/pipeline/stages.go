package pipeline

import (
	"context"

	"github.com/oho/clusterlab/internal/cluster"
	"github.com/oho/clusterlab/internal/dataflow"
	"github.com/oho/clusterlab/internal/text"
)

// TokenizeStage splits every document into lowercase word tokens, one
// goroutine per partition.
type TokenizeStage struct {
	Partitions int
}

func (TokenizeStage) Name() string { return "tokenize" }

func (st TokenizeStage) Run(ctx context.Context, s *State) error {
	ds := dataflow.Parallelize(s.Docs, st.Partitions)
	toks, err := dataflow.MapDataset(ctx, ds, func(d text.Document) ([]string, error) {
		return text.Tokenize(d.Text), nil
	})
	if err != nil {
		return err
	}
	s.Tokens = toks.Collect()
	return nil
}

// StopwordStage drops tokens found in Stop.
type StopwordStage struct {
	Stop text.StopSet
}

func (StopwordStage) Name() string { return "stopwords" }

func (st StopwordStage) Run(_ context.Context, s *State) error {
	s.Tokens = dataflow.Map(s.Tokens, func(toks []string) []string {
		return text.RemoveStopwords(toks, st.Stop)
	})
	return nil
}

// HashStage turns token lists into fixed-width feature rows.
type HashStage struct {
	Features int
	IDF      bool
}

func (HashStage) Name() string { return "hash" }

func (st HashStage) Run(_ context.Context, s *State) error {
	rows, err := text.HashVectorize(s.Tokens, st.Features, st.IDF)
	if err != nil {
		return err
	}
	s.Features = rows
	return nil
}

// ScaleStage rescales the feature columns in place of the raw rows.
type ScaleStage struct {
	Scaler cluster.Scaler
}

func (ScaleStage) Name() string { return "scale" }

func (st ScaleStage) Run(_ context.Context, s *State) error {
	scaled, err := st.Scaler.FitTransform(s.Features)
	if err != nil {
		return err
	}
	s.Features = scaled
	s.Scaler = st.Scaler
	return nil
}

// KMeansStage partitions the feature rows with Lloyd's method. A zero K is
// picked from the row count.
type KMeansStage struct {
	Options cluster.KMeansOptions
}

func (KMeansStage) Name() string { return "kmeans" }

func (st KMeansStage) Run(ctx context.Context, s *State) error {
	if len(s.Features) == 0 {
		return ErrNoFeatures
	}
	opts := st.Options
	if opts.K == 0 {
		opts.K = cluster.AutoK(len(s.Features))
	}
	res, err := cluster.KMeansContext(ctx, s.Features, opts)
	if err != nil {
		return err
	}
	s.KMeans = res
	s.Labels = res.Labels
	s.Centroids = res.Centroids
	return nil
}

// GMMStage fits a Gaussian mixture and labels rows by their most likely
// component.
type GMMStage struct {
	Options cluster.GMMOptions
}

func (GMMStage) Name() string { return "gmm" }

func (st GMMStage) Run(ctx context.Context, s *State) error {
	if len(s.Features) == 0 {
		return ErrNoFeatures
	}
	opts := st.Options
	if opts.K == 0 {
		opts.K = cluster.AutoK(len(s.Features))
	}
	m, err := cluster.GaussianMixtureContext(ctx, s.Features, opts)
	if err != nil {
		return err
	}
	labels, err := m.Predict(s.Features)
	if err != nil {
		return err
	}
	s.Mixture = m
	s.Labels = labels
	s.Centroids = m.Means
	return nil
}
