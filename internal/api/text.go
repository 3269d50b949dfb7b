package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oho/clusterlab/internal/pipeline"
)

// TextRouter starts background corpus clustering and reports its progress.
func TextRouter(orch *pipeline.Orchestrator) chi.Router {
	r := chi.NewRouter()

	r.Post("/cluster", func(w http.ResponseWriter, r *http.Request) {
		var req pipeline.TextJobRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		runID, err := orch.StartText(req)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID, "status": "started"})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, orch.GetStatus())
	})

	return r
}
