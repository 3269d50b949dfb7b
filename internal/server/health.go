package server

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/oho/clusterlab/internal/config"
	"github.com/oho/clusterlab/internal/dataset"
	"github.com/oho/clusterlab/internal/storage"
)

type HealthResponse struct {
	Status     string         `json:"status"`
	DB         string         `json:"db"`
	DataDir    string         `json:"data_dir"`
	Port       int            `json:"port"`
	RunCounts  map[string]int `json:"run_counts"`
	Builtins   []string       `json:"builtin_datasets"`
	DefaultK   int            `json:"default_k"`
	Features   int            `json:"hash_features"`
	JobRunning bool           `json:"job_running"`
}

// JobState reports whether a background job is active.
type JobState interface {
	IsRunning() bool
}

// HealthHandler returns a handler for GET /health.
func HealthHandler(cfg config.Config, db *storage.Database, jobs JobState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbStatus := "connected"
		counts := map[string]int{}
		if db == nil {
			dbStatus = "unavailable"
		} else if err := db.DB().PingContext(r.Context()); err != nil {
			dbStatus = "error"
		} else if c, err := db.CountRunsByStatus(); err != nil {
			dbStatus = "error"
		} else {
			counts = c
		}

		builtins := make([]string, 0, len(dataset.Builtins))
		for name := range dataset.Builtins {
			builtins = append(builtins, name)
		}
		sort.Strings(builtins)

		resp := HealthResponse{
			Status:    "ok",
			DB:        dbStatus,
			DataDir:   cfg.DataDir,
			Port:      cfg.Port,
			RunCounts: counts,
			Builtins:  builtins,
			DefaultK:  cfg.Cluster.DefaultK,
			Features:  cfg.Text.HashFeatures,
		}
		if jobs != nil {
			resp.JobRunning = jobs.IsRunning()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
