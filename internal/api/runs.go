package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/oho/clusterlab/internal/pipeline"
	"github.com/oho/clusterlab/internal/plot"
	"github.com/oho/clusterlab/internal/storage"
)

// RunsRouter serves synchronous table clustering and stored run lookups.
// Rendered scatter plots are kept in plots.
func RunsRouter(db *storage.Database, runner *pipeline.Runner, plots *plot.Cache) chi.Router {
	r := chi.NewRouter()

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		var req pipeline.RunRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		report, err := runner.RunTable(r.Context(), req)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	})

	r.Get("/list", func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if l := r.URL.Query().Get("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil && n > 0 {
				limit = n
			}
		}
		var runs []storage.Run
		var err error
		if q := r.URL.Query().Get("q"); q != "" {
			runs, err = db.SearchRuns(q, limit)
		} else {
			var status *storage.RunStatus
			if s := r.URL.Query().Get("status"); s != "" {
				st := storage.RunStatus(s)
				status = &st
			}
			runs, err = db.ListRuns(status, limit)
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if runs == nil {
			runs = []storage.Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Post("/elbow", func(w http.ResponseWriter, r *http.Request) {
		var req pipeline.ElbowRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		points, err := runner.Elbow(r.Context(), req)
		if err != nil {
			writeErr(w, err)
			return
		}
		if r.URL.Query().Get("format") == "png" {
			var buf bytes.Buffer
			if err := plot.Elbow(&buf, points, plot.Options{Title: "Elbow: " + req.Dataset.Name()}); err != nil {
				writeErr(w, err)
				return
			}
			w.Header().Set("Content-Type", "image/png")
			w.Write(buf.Bytes())
			return
		}
		writeJSON(w, http.StatusOK, points)
	})

	r.Get("/{run_id}", func(w http.ResponseWriter, r *http.Request) {
		run, ok := lookupRun(w, db, chi.URLParam(r, "run_id"))
		if !ok {
			return
		}
		centroids, err := db.GetCentroids(run.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		var metrics any
		if run.MetricsJSON != nil {
			json.Unmarshal([]byte(*run.MetricsJSON), &metrics)
		}
		if centroids == nil {
			centroids = []storage.Centroid{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"run":       run,
			"metrics":   metrics,
			"centroids": centroids,
		})
	})

	r.Get("/{run_id}/assignments", func(w http.ResponseWriter, r *http.Request) {
		run, ok := lookupRun(w, db, chi.URLParam(r, "run_id"))
		if !ok {
			return
		}
		clusterID := -1
		if c := r.URL.Query().Get("cluster"); c != "" {
			n, err := strconv.Atoi(c)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "cluster must be a non-negative integer")
				return
			}
			clusterID = n
		}
		as, err := db.GetAssignments(run.ID, clusterID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if as == nil {
			as = []storage.Assignment{}
		}
		writeJSON(w, http.StatusOK, as)
	})

	r.Get("/{run_id}/plot.png", func(w http.ResponseWriter, r *http.Request) {
		run, ok := lookupRun(w, db, chi.URLParam(r, "run_id"))
		if !ok {
			return
		}
		if run.Status != storage.RunCompleted {
			writeError(w, http.StatusConflict, fmt.Sprintf("run is %s", run.Status))
			return
		}
		x, errX := strconv.Atoi(queryDefault(r, "x", "0"))
		y, errY := strconv.Atoi(queryDefault(r, "y", "1"))
		if errX != nil || errY != nil {
			writeError(w, http.StatusBadRequest, "x and y must be integers")
			return
		}
		if b, ok := plots.Load(run.ID, x, y); ok {
			w.Header().Set("Content-Type", "image/png")
			w.Write(b)
			return
		}
		points, labels, err := db.Points(run.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		cs, err := db.GetCentroids(run.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		centroids := make([][]float64, len(cs))
		for i, c := range cs {
			centroids[i] = c.Vector
		}

		var buf bytes.Buffer
		opts := plot.Options{
			Title:  fmt.Sprintf("%s (%s, k=%d)", run.Dataset, run.Algorithm, run.K),
			XLabel: fmt.Sprintf("feature %d", x),
			YLabel: fmt.Sprintf("feature %d", y),
		}
		if err := plot.Scatter(&buf, points, labels, centroids, x, y, opts); err != nil {
			writeErr(w, err)
			return
		}
		if err := plots.Store(run.ID, x, y, buf.Bytes()); err != nil {
			slog.Warn("Failed to store plot", "run", run.ID, "error", err)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	})

	r.Delete("/{run_id}", func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "run_id")
		existed, err := db.DeleteRun(runID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !existed {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		if err := plots.Remove(runID); err != nil {
			slog.Warn("Failed to remove plots", "run", runID, "error", err)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "run_id": runID})
	})

	return r
}

func lookupRun(w http.ResponseWriter, db *storage.Database, runID string) (*storage.Run, bool) {
	run, err := db.GetRun(runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "Run not found")
		return nil, false
	}
	return run, true
}

func queryDefault(r *http.Request, key, def string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}
