// Package pipeline chains named stages (tokenize, drop stop words, hash,
// scale, cluster) over a shared State and runs clustering jobs end to end.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oho/clusterlab/internal/cluster"
	"github.com/oho/clusterlab/internal/text"
)

var (
	ErrBusy             = errors.New("pipeline already running")
	ErrUnknownAlgorithm = errors.New("pipeline: unknown algorithm")
	ErrNoFeatures       = errors.New("pipeline: no feature rows")
)

// State is the data handed from stage to stage. Each stage reads what the
// previous ones produced and fills in its own fields.
type State struct {
	Docs     []text.Document
	Tokens   [][]string
	Features [][]float64

	Labels    []int
	Centroids [][]float64
	KMeans    *cluster.Result
	Mixture   *cluster.GaussianMixtureModel
	Scaler    cluster.Scaler
}

// Stage is one step of a Pipeline.
type Stage interface {
	Name() string
	Run(ctx context.Context, s *State) error
}

// Pipeline runs its stages in order, stopping at the first failure.
type Pipeline struct {
	stages []Stage
	// OnStage, when set, is called before each stage starts.
	OnStage func(name string, index, total int)
}

func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Names lists the stage names in run order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, st := range p.stages {
		names[i] = st.Name()
	}
	return names
}

func (p *Pipeline) Run(ctx context.Context, s *State) error {
	for i, st := range p.stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.OnStage != nil {
			p.OnStage(st.Name(), i, len(p.stages))
		}
		start := time.Now()
		if err := st.Run(ctx, s); err != nil {
			slog.Error("Stage failed", "stage", st.Name(), "error", err)
			return fmt.Errorf("stage %s: %w", st.Name(), err)
		}
		slog.Debug("Stage complete", "stage", st.Name(), "elapsed", time.Since(start))
	}
	return nil
}

// TextOptions configures the document clustering chain.
type TextOptions struct {
	Stopwords  text.StopSet
	Features   int
	IDF        bool
	Partitions int
	KMeans     cluster.KMeansOptions
}

// NewTextPipeline builds tokenize -> stop words -> hash -> k-means. Hashed
// rows are too wide for full-covariance mixtures, so text always uses k-means.
func NewTextPipeline(opts TextOptions) *Pipeline {
	stop := opts.Stopwords
	if stop == nil {
		stop = text.DefaultStopwords
	}
	return New(
		TokenizeStage{Partitions: opts.Partitions},
		StopwordStage{Stop: stop},
		HashStage{Features: opts.Features, IDF: opts.IDF},
		KMeansStage{Options: opts.KMeans},
	)
}

// NewTablePipeline builds the optional scaling step followed by clustering.
func NewTablePipeline(scale, algorithm string, km cluster.KMeansOptions, gmm cluster.GMMOptions) (*Pipeline, error) {
	scaler, err := cluster.NewScaler(scale)
	if err != nil {
		return nil, err
	}
	clusterStage, err := clusterStageFor(algorithm, km, gmm)
	if err != nil {
		return nil, err
	}
	var stages []Stage
	if scaler != nil {
		stages = append(stages, ScaleStage{Scaler: scaler})
	}
	return New(append(stages, clusterStage)...), nil
}

func clusterStageFor(algorithm string, km cluster.KMeansOptions, gmm cluster.GMMOptions) (Stage, error) {
	switch algorithm {
	case "", "kmeans":
		return KMeansStage{Options: km}, nil
	case "gmm":
		return GMMStage{Options: gmm}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownAlgorithm, algorithm)
}
