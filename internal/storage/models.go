package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the state of a clustering run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunKind tells numeric table runs from text corpus runs.
type RunKind string

const (
	KindTable RunKind = "table"
	KindText  RunKind = "text"
)

// timeLayout keeps a fixed fraction width so timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nowISO() string {
	return time.Now().UTC().Format(timeLayout)
}

// Run is one clustering fit and its summary scores.
type Run struct {
	ID            string    `json:"id"`
	Kind          RunKind   `json:"kind"`
	Dataset       string    `json:"dataset"`
	Algorithm     string    `json:"algorithm"`
	K             int       `json:"k"`
	ParamsJSON    string    `json:"params_json"`
	Status        RunStatus `json:"status"`
	Rows          int       `json:"rows"`
	Dim           int       `json:"dim"`
	Iterations    int       `json:"iterations"`
	Converged     bool      `json:"converged"`
	Inertia       *float64  `json:"inertia,omitempty"`
	LogLikelihood *float64  `json:"log_likelihood,omitempty"`
	MetricsJSON   *string   `json:"metrics_json,omitempty"`
	ErrorMessage  *string   `json:"error_message,omitempty"`
	CreatedAt     string    `json:"created_at"`
	UpdatedAt     string    `json:"updated_at"`
}

// NewRun creates a pending Run with a fresh ID.
func NewRun(kind RunKind, dataset, algorithm string, k int, params any) Run {
	now := nowISO()
	return Run{
		ID:         uuid.NewString(),
		Kind:       kind,
		Dataset:    dataset,
		Algorithm:  algorithm,
		K:          k,
		ParamsJSON: mustJSON(params),
		Status:     RunPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// RunResult carries the fields written when a run completes.
type RunResult struct {
	Rows          int
	Dim           int
	Iterations    int
	Converged     bool
	Inertia       *float64
	LogLikelihood *float64
	Metrics       any
}

// Assignment is the cluster label of one input row. Point holds the features
// the row was clustered on.
type Assignment struct {
	RunID    string    `json:"run_id"`
	RowIndex int       `json:"row_index"`
	Label    int       `json:"label"`
	Name     *string   `json:"name,omitempty"`
	Truth    *string   `json:"truth,omitempty"`
	Point    []float64 `json:"-"`
}

// Centroid is one cluster center of a run.
type Centroid struct {
	RunID    string    `json:"run_id"`
	Cluster  int       `json:"cluster"`
	Size     int       `json:"size"`
	Vector   []float64 `json:"vector"`
	TopTerms []string  `json:"top_terms,omitempty"`
}

func mustJSON(v any) string {
	if v == nil {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
