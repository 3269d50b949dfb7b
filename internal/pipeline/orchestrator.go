package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oho/clusterlab/internal/cluster"
	"github.com/oho/clusterlab/internal/config"
	"github.com/oho/clusterlab/internal/storage"
	"github.com/oho/clusterlab/internal/text"
)

// TextInput is one document supplied inline.
type TextInput struct {
	Name  string `json:"name"`
	Text  string `json:"text"`
	Label string `json:"label,omitempty"`
}

// TextJobRequest asks for a corpus to be clustered. Documents and Dir may be
// combined; Dir is walked for text files.
type TextJobRequest struct {
	Documents []TextInput `json:"documents,omitempty"`
	Dir       string      `json:"dir,omitempty"`
	Features  int         `json:"features,omitempty"`
	IDF       *bool       `json:"idf,omitempty"`
	Stopwords []string    `json:"stopwords,omitempty"`
	Params
}

// Orchestrator runs one text clustering job at a time in the background and
// keeps a short activity log for status polling.
type Orchestrator struct {
	db           *storage.Database
	cfg          config.Config
	running      bool
	currentRunID *string
	cancel       context.CancelFunc
	mu           sync.Mutex
	wg           sync.WaitGroup
	liveProgress map[string]any
	activityLog  []map[string]any
	logMu        sync.Mutex
}

func NewOrchestrator(db *storage.Database, cfg config.Config) *Orchestrator {
	return &Orchestrator{
		db:           db,
		cfg:          cfg,
		liveProgress: make(map[string]any),
	}
}

func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) emit(stage, action, detail string, counts map[string]int) {
	entry := map[string]any{
		"ts":     time.Now().UTC().Format("15:04:05"),
		"stage":  stage,
		"action": action,
		"detail": detail,
	}
	if counts != nil {
		entry["counts"] = counts
	}
	o.logMu.Lock()
	o.activityLog = append(o.activityLog, entry)
	if len(o.activityLog) > 200 {
		o.activityLog = o.activityLog[len(o.activityLog)-200:]
	}
	o.logMu.Unlock()
}

func (o *Orchestrator) setLive(p map[string]any) {
	o.mu.Lock()
	o.liveProgress = p
	o.mu.Unlock()
}

// StartText validates req, records a pending run and clusters the corpus in
// a background goroutine. It returns the run ID, or ErrBusy while another
// job is in flight.
func (o *Orchestrator) StartText(req TextJobRequest) (string, error) {
	if len(req.Documents) == 0 && req.Dir == "" {
		return "", fmt.Errorf("%w: documents or dir required", text.ErrNoDocuments)
	}
	if req.Algorithm != "" && req.Algorithm != "kmeans" {
		return "", fmt.Errorf("%w %q for text", ErrUnknownAlgorithm, req.Algorithm)
	}
	km, err := req.kmeans(o.cfg.Cluster)
	if err != nil {
		return "", err
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return "", ErrBusy
	}
	o.running = true
	o.mu.Unlock()

	name := req.Dir
	if name == "" {
		name = fmt.Sprintf("inline:%d", len(req.Documents))
	}
	run := storage.NewRun(storage.KindText, name, "kmeans", km.K, req.Params)
	if err := o.db.InsertRun(run); err != nil {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
		return "", fmt.Errorf("insert run: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.currentRunID = &run.ID
	o.cancel = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go o.runTextWorker(ctx, run.ID, req, km)
	return run.ID, nil
}

// Wait blocks until the current job, if any, has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Stop cancels the running job and waits for it to exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	o.wg.Wait()
}

func (o *Orchestrator) runTextWorker(ctx context.Context, runID string, req TextJobRequest, km cluster.KMeansOptions) {
	defer o.wg.Done()
	o.setLive(make(map[string]any))
	o.logMu.Lock()
	o.activityLog = nil
	o.logMu.Unlock()

	defer func() {
		o.mu.Lock()
		if o.cancel != nil {
			o.cancel()
		}
		o.running = false
		o.currentRunID = nil
		o.cancel = nil
		o.mu.Unlock()
	}()

	if err := o.runText(ctx, runID, req, km); err != nil {
		slog.Error("Text job failed", "run", runID, "error", err)
		msg := err.Error()
		if uerr := o.db.UpdateRunStatus(runID, storage.RunFailed, &msg); uerr != nil {
			slog.Error("Failed to mark run failed", "run", runID, "error", uerr)
		}
		o.emit("failed", "error", msg, nil)
		return
	}
	o.emit("completed", "done", "Text job finished", nil)
	slog.Info("=== Text job completed ===", "run", runID)
}

func (o *Orchestrator) runText(ctx context.Context, runID string, req TextJobRequest, km cluster.KMeansOptions) error {
	if err := o.db.UpdateRunStatus(runID, storage.RunRunning, nil); err != nil {
		return err
	}

	// Stage 0: gather documents
	slog.Info("=== Loading corpus ===", "run", runID)
	o.setLive(map[string]any{"load": map[string]any{"dir": req.Dir, "inline": len(req.Documents)}})
	var docs []text.Document
	var truth []string
	hasTruth := false
	for _, in := range req.Documents {
		name := in.Name
		if name == "" {
			name = fmt.Sprintf("doc-%d", len(docs))
		}
		docs = append(docs, text.NewDocument(name, in.Text))
		truth = append(truth, in.Label)
		if in.Label != "" {
			hasTruth = true
		}
	}
	if req.Dir != "" {
		loaded, stats, err := text.LoadCorpus(req.Dir, o.cfg.Text.MaxFileSizeBytes)
		if err != nil {
			return err
		}
		o.emit("loading", "scanned", req.Dir, map[string]int{
			"documents": stats.Documents, "skipped": stats.Skipped, "errors": stats.Errors,
		})
		docs = append(docs, loaded...)
		truth = append(truth, make([]string, len(loaded))...)
	}
	if len(docs) == 0 {
		return text.ErrNoDocuments
	}
	if limit := o.cfg.Text.MaxDocuments; limit > 0 && len(docs) > limit {
		return fmt.Errorf("%w: %d documents, limit %d", ErrTooManyRows, len(docs), limit)
	}
	if !hasTruth {
		truth = nil
	}

	features := req.Features
	if features == 0 {
		features = o.cfg.Text.HashFeatures
	}
	idf := o.cfg.Text.UseIDF
	if req.IDF != nil {
		idf = *req.IDF
	}
	stop := text.DefaultStopwords
	if len(req.Stopwords) > 0 {
		stop = stop.With(req.Stopwords...)
	}

	p := NewTextPipeline(TextOptions{
		Stopwords:  stop,
		Features:   features,
		IDF:        idf,
		Partitions: o.cfg.Dataflow.Partitions,
		KMeans:     km,
	})
	p.OnStage = func(name string, i, total int) {
		slog.Info(fmt.Sprintf("=== Stage %d: %s ===", i+1, name), "run", runID)
		o.setLive(map[string]any{"stage": name, "done": i, "total": total, "documents": len(docs)})
		o.emit(name, "started", fmt.Sprintf("%d documents", len(docs)), nil)
	}

	state := &State{Docs: docs}
	if err := p.Run(ctx, state); err != nil {
		return err
	}

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	var truthIDs []int
	var classes []string
	if truth != nil {
		truthIDs, classes = cluster.EncodeLabels(truth)
	}
	metrics := Metrics{
		Scores:  cluster.Evaluate(state.Features, state.Labels, state.Centroids, truthIDs),
		Classes: classes,
	}
	metrics.Clusters = summarize(state, names, o.cfg.Text.TopTerms)
	for _, c := range metrics.Clusters {
		o.emit("summarize", "cluster", fmt.Sprintf("cluster %d: %v", c.Cluster, c.TopTerms), map[string]int{"size": c.Size})
	}

	return persist(o.db, runID, state, names, truth, metrics)
}

// GetStatus returns the current job state and recent activity.
func (o *Orchestrator) GetStatus() map[string]any {
	counts, _ := o.db.CountRunsByStatus()
	total := 0
	for _, v := range counts {
		total += v
	}

	latest := map[string]any{}
	if runs, err := o.db.ListRuns(nil, 50); err == nil {
		for _, r := range runs {
			if r.Kind == storage.KindText {
				latest = map[string]any{
					"run_id":     r.ID,
					"status":     string(r.Status),
					"dataset":    r.Dataset,
					"k":          r.K,
					"updated_at": r.UpdatedAt,
				}
				if r.ErrorMessage != nil {
					latest["error"] = *r.ErrorMessage
				}
				break
			}
		}
	}

	o.logMu.Lock()
	var recentLog []map[string]any
	if len(o.activityLog) > 50 {
		recentLog = make([]map[string]any, 50)
		copy(recentLog, o.activityLog[len(o.activityLog)-50:])
	} else {
		recentLog = make([]map[string]any, len(o.activityLog))
		copy(recentLog, o.activityLog)
	}
	o.logMu.Unlock()

	o.mu.Lock()
	running := o.running
	var currentRunID *string
	if o.currentRunID != nil {
		s := *o.currentRunID
		currentRunID = &s
	}
	live := map[string]any{}
	if running {
		for k, v := range o.liveProgress {
			live[k] = v
		}
	}
	o.mu.Unlock()

	return map[string]any{
		"running":         running,
		"current_run_id":  currentRunID,
		"total_runs":      total,
		"status_counts":   counts,
		"latest_text_run": latest,
		"live":            live,
		"activity_log":    recentLog,
	}
}
