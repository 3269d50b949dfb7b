package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/oho/clusterlab/internal/dataflow"
	"github.com/oho/clusterlab/internal/text"
)

type wordCountRequest struct {
	Lines      []string `json:"lines"`
	Text       string   `json:"text"`
	Partitions int      `json:"partitions"`
	Top        int      `json:"top"`
	KeepStop   bool     `json:"keep_stopwords"`
}

// DataflowRouter exposes the partitioned map/reduce demo.
func DataflowRouter(defaultPartitions int) chi.Router {
	r := chi.NewRouter()

	r.Post("/wordcount", func(w http.ResponseWriter, r *http.Request) {
		var req wordCountRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		lines := req.Lines
		if req.Text != "" {
			lines = append(lines, strings.Split(req.Text, "\n")...)
		}
		if len(lines) == 0 {
			writeError(w, http.StatusBadRequest, "lines or text required")
			return
		}
		partitions := req.Partitions
		if partitions <= 0 {
			partitions = defaultPartitions
		}
		stop := text.DefaultStopwords
		if req.KeepStop {
			stop = text.NewStopSet()
		}

		counts, err := dataflow.WordCount(r.Context(), lines, partitions, stop)
		if err != nil {
			writeErr(w, err)
			return
		}
		if req.Top > 0 && req.Top < len(counts) {
			counts = counts[:req.Top]
		}
		if counts == nil {
			counts = []dataflow.Pair[string, int]{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"partitions": partitions,
			"lines":      len(lines),
			"counts":     counts,
		})
	})

	return r
}
