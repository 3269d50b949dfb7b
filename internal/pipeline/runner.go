package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oho/clusterlab/internal/cluster"
	"github.com/oho/clusterlab/internal/config"
	"github.com/oho/clusterlab/internal/dataset"
	"github.com/oho/clusterlab/internal/mathutil"
	"github.com/oho/clusterlab/internal/storage"
	"github.com/oho/clusterlab/internal/text"
)

var (
	ErrInvalidOption = errors.New("pipeline: invalid option")
	ErrTooManyRows   = errors.New("pipeline: dataset exceeds row limit")
)

// Params are the clustering knobs shared by table and text runs. Zero values
// fall back to the configured defaults.
type Params struct {
	Algorithm    string  `json:"algorithm,omitempty"`
	K            int     `json:"k,omitempty"`
	Seed         *int64  `json:"seed,omitempty"`
	NInit        int     `json:"n_init,omitempty"`
	MaxIter      int     `json:"max_iter,omitempty"`
	Tol          float64 `json:"tol,omitempty"`
	Init         string  `json:"init,omitempty"`
	EmptyCluster string  `json:"empty_cluster,omitempty"`
	Scale        string  `json:"scale,omitempty"`
}

func (p Params) kmeans(cc config.ClusterConfig) (cluster.KMeansOptions, error) {
	opts := cluster.KMeansOptions{
		K:       p.K,
		MaxIter: p.MaxIter,
		Tol:     p.Tol,
		NInit:   p.NInit,
		Seed:    cc.Seed,
	}
	if p.Seed != nil {
		opts.Seed = *p.Seed
	}
	if opts.MaxIter == 0 {
		opts.MaxIter = cc.MaxIter
	}
	if opts.Tol == 0 {
		opts.Tol = cc.Tol
	}
	if opts.NInit == 0 {
		opts.NInit = cc.NInit
	}

	init := p.Init
	if init == "" {
		init = cc.Init
	}
	switch cluster.InitMethod(init) {
	case cluster.InitRandom, cluster.InitKMeansPlusPlus:
		opts.Init = cluster.InitMethod(init)
	default:
		return opts, fmt.Errorf("%w: init %q", ErrInvalidOption, init)
	}
	switch cluster.EmptyClusterPolicy(p.EmptyCluster) {
	case "", cluster.KeepPrevious, cluster.Reseed:
		opts.EmptyCluster = cluster.EmptyClusterPolicy(p.EmptyCluster)
	default:
		return opts, fmt.Errorf("%w: empty_cluster %q", ErrInvalidOption, p.EmptyCluster)
	}
	if opts.K < 0 || opts.NInit < 0 || opts.MaxIter < 0 {
		return opts, fmt.Errorf("%w: k, n_init and max_iter must not be negative", ErrInvalidOption)
	}
	return opts, nil
}

func (p Params) gmm(cc config.ClusterConfig) cluster.GMMOptions {
	opts := cluster.GMMOptions{K: p.K, MaxIter: p.MaxIter, Seed: cc.Seed}
	if p.Seed != nil {
		opts.Seed = *p.Seed
	}
	if p.Tol > 0 {
		opts.Tol = p.Tol
	}
	return opts
}

// RunRequest asks for one clustering of a numeric table.
type RunRequest struct {
	Dataset dataset.Source `json:"dataset"`
	Params
}

// ClusterSummary describes one cluster of a finished run.
type ClusterSummary struct {
	Cluster   int      `json:"cluster"`
	Size      int      `json:"size"`
	TopTerms  []string `json:"top_terms,omitempty"`
	Exemplars []string `json:"exemplars,omitempty"`
}

// Metrics is what a completed run stores alongside its summary row.
type Metrics struct {
	cluster.Scores
	Columns  []string         `json:"columns,omitempty"`
	Classes  []string         `json:"classes,omitempty"`
	Clusters []ClusterSummary `json:"clusters"`
}

// RunReport is the outcome of a table run. Centroids live in the scaled
// feature space when a scaler was applied.
type RunReport struct {
	Run       storage.Run `json:"run"`
	Metrics   Metrics     `json:"metrics"`
	Centroids [][]float64 `json:"centroids"`
}

// Runner executes table clustering runs synchronously and persists them.
type Runner struct {
	db  *storage.Database
	cfg config.Config
}

func NewRunner(db *storage.Database, cfg config.Config) *Runner {
	return &Runner{db: db, cfg: cfg}
}

func (r *Runner) loadTable(src dataset.Source) (*dataset.Table, error) {
	tbl, err := src.Load()
	if err != nil {
		return nil, err
	}
	if limit := r.cfg.Cluster.MaxRows; limit > 0 && tbl.Len() > limit {
		return nil, fmt.Errorf("%w: %d rows, limit %d", ErrTooManyRows, tbl.Len(), limit)
	}
	return tbl, nil
}

// RunTable loads the requested dataset, clusters it and stores the run with
// its assignments and centroids. Bad options fail before a run is recorded;
// failures while clustering leave a failed run behind.
func (r *Runner) RunTable(ctx context.Context, req RunRequest) (*RunReport, error) {
	km, err := req.kmeans(r.cfg.Cluster)
	if err != nil {
		return nil, err
	}
	if km.K == 0 {
		km.K = r.cfg.Cluster.DefaultK
	}
	gm := req.gmm(r.cfg.Cluster)
	gm.K = km.K

	p, err := NewTablePipeline(req.Scale, req.Algorithm, km, gm)
	if err != nil {
		return nil, err
	}
	tbl, err := r.loadTable(req.Dataset)
	if err != nil {
		return nil, err
	}

	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = "kmeans"
	}
	run := storage.NewRun(storage.KindTable, req.Dataset.Name(), algorithm, km.K, req.Params)
	run.Status = storage.RunRunning
	if err := r.db.InsertRun(run); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	slog.Info("Run started", "run", run.ID, "dataset", run.Dataset, "algorithm", algorithm, "k", km.K, "rows", tbl.Len())

	state := &State{Features: mathutil.Clone(tbl.Rows)}
	if err := p.Run(ctx, state); err != nil {
		r.fail(run.ID, err)
		return nil, err
	}

	var truth []int
	var classes []string
	if tbl.Labels != nil {
		truth, classes = cluster.EncodeLabels(tbl.Labels)
	}
	metrics := Metrics{
		Scores:  cluster.Evaluate(state.Features, state.Labels, state.Centroids, truth),
		Columns: tbl.Columns,
		Classes: classes,
	}
	if state.Mixture != nil {
		ll := state.Mixture.LogLikelihood
		metrics.LogLikelihood = &ll
	}
	metrics.Clusters = summarize(state, nil, 0)

	if err := persist(r.db, run.ID, state, nil, tbl.Labels, metrics); err != nil {
		r.fail(run.ID, err)
		return nil, err
	}
	stored, err := r.db.GetRun(run.ID)
	if err != nil {
		return nil, fmt.Errorf("reload run %s: %w", run.ID, err)
	}
	if stored == nil {
		return nil, fmt.Errorf("run %s vanished after completion", run.ID)
	}
	slog.Info("Run completed", "run", run.ID, "inertia", metrics.Inertia)
	return &RunReport{Run: *stored, Metrics: metrics, Centroids: state.Centroids}, nil
}

// fail records err on a run that could not finish.
func (r *Runner) fail(runID string, err error) {
	msg := err.Error()
	if uerr := r.db.UpdateRunStatus(runID, storage.RunFailed, &msg); uerr != nil {
		slog.Error("Failed to mark run failed", "run", runID, "error", uerr)
	}
}

// ElbowRequest sweeps K over [KMin, KMax] on one dataset.
type ElbowRequest struct {
	Dataset dataset.Source `json:"dataset"`
	KMin    int            `json:"k_min"`
	KMax    int            `json:"k_max"`
	Params
}

// Elbow reports k-means inertia and silhouette for each K in the request.
func (r *Runner) Elbow(ctx context.Context, req ElbowRequest) ([]cluster.ElbowPoint, error) {
	km, err := req.kmeans(r.cfg.Cluster)
	if err != nil {
		return nil, err
	}
	scaler, err := cluster.NewScaler(req.Scale)
	if err != nil {
		return nil, err
	}
	tbl, err := r.loadTable(req.Dataset)
	if err != nil {
		return nil, err
	}
	X := tbl.Rows
	if scaler != nil {
		if X, err = scaler.FitTransform(X); err != nil {
			return nil, err
		}
	}
	if req.KMin == 0 {
		req.KMin = 1
	}
	if limit := r.cfg.Cluster.ElbowMaxK; req.KMax == 0 || (limit > 0 && req.KMax > limit) {
		req.KMax = limit
	}
	return cluster.ElbowContext(ctx, X, req.KMin, req.KMax, km)
}

// summarize builds per-cluster sizes, exemplars and, for documents, top
// terms. Document exemplars are ranked by cosine similarity to the centroid,
// table rows by Euclidean distance and named by row index when names is nil.
func summarize(s *State, names []string, topTerms int) []ClusterSummary {
	members := make([][]int, len(s.Centroids))
	for i, l := range s.Labels {
		members[l] = append(members[l], i)
	}
	out := make([]ClusterSummary, len(s.Centroids))
	for c, idx := range members {
		sum := ClusterSummary{Cluster: c, Size: len(idx)}
		if len(idx) > 0 {
			rows := make([][]float64, len(idx))
			for j, i := range idx {
				rows[j] = s.Features[i]
			}
			rank := mathutil.ClosestTo
			if s.Tokens != nil {
				rank = mathutil.MostSimilar
			}
			for _, j := range rank(rows, s.Centroids[c], 3) {
				if names != nil {
					sum.Exemplars = append(sum.Exemplars, names[idx[j]])
				} else {
					sum.Exemplars = append(sum.Exemplars, fmt.Sprintf("row %d", idx[j]))
				}
			}
		}
		if topTerms > 0 && s.Tokens != nil {
			docs := make([][]string, len(idx))
			for j, i := range idx {
				docs[j] = s.Tokens[i]
			}
			sum.TopTerms = text.TopTerms(docs, topTerms)
		}
		out[c] = sum
	}
	return out
}

// persist writes assignments, centroids and the run summary.
func persist(db *storage.Database, runID string, s *State, names, truth []string, metrics Metrics) error {
	as := make([]storage.Assignment, len(s.Labels))
	for i, l := range s.Labels {
		a := storage.Assignment{RowIndex: i, Label: l, Point: s.Features[i]}
		if names != nil {
			a.Name = &names[i]
		}
		if truth != nil {
			a.Truth = &truth[i]
		}
		as[i] = a
	}
	if err := db.SaveAssignments(runID, as); err != nil {
		return fmt.Errorf("save assignments: %w", err)
	}

	cs := make([]storage.Centroid, len(s.Centroids))
	for c, v := range s.Centroids {
		cs[c] = storage.Centroid{Cluster: c, Vector: v}
		if c < len(metrics.Clusters) {
			cs[c].Size = metrics.Clusters[c].Size
			cs[c].TopTerms = metrics.Clusters[c].TopTerms
		}
	}
	if err := db.SaveCentroids(runID, cs); err != nil {
		return fmt.Errorf("save centroids: %w", err)
	}

	res := storage.RunResult{Rows: len(s.Features), Metrics: metrics}
	if len(s.Features) > 0 {
		res.Dim = len(s.Features[0])
	}
	switch {
	case s.KMeans != nil:
		res.Iterations, res.Converged = s.KMeans.Iterations, s.KMeans.Converged
		inertia := s.KMeans.Inertia
		res.Inertia = &inertia
	case s.Mixture != nil:
		res.Iterations, res.Converged = s.Mixture.Iterations, s.Mixture.Converged
		ll := s.Mixture.LogLikelihood
		res.LogLikelihood = &ll
		inertia := metrics.Inertia
		res.Inertia = &inertia
	}
	if err := db.CompleteRun(runID, res); err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}
