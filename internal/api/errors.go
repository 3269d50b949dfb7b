package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"github.com/oho/clusterlab/internal/cluster"
	"github.com/oho/clusterlab/internal/dataset"
	"github.com/oho/clusterlab/internal/pipeline"
	"github.com/oho/clusterlab/internal/plot"
	"github.com/oho/clusterlab/internal/text"
)

// badInput lists errors caused by the request rather than the server.
var badInput = []error{
	dataset.ErrUnknownColumn,
	dataset.ErrNonNumericColumn,
	dataset.ErrMissingValue,
	dataset.ErrEmpty,
	dataset.ErrRagged,
	dataset.ErrUnknownDataset,
	dataset.ErrNonFinite,
	dataset.ErrBadDelimiter,
	cluster.ErrEmptyInput,
	cluster.ErrInvalidK,
	cluster.ErrTooFewRows,
	cluster.ErrDimensionMismatch,
	cluster.ErrNonFinite,
	cluster.ErrUnknownScaler,
	cluster.ErrSingularCovariance,
	pipeline.ErrUnknownAlgorithm,
	pipeline.ErrInvalidOption,
	pipeline.ErrTooManyRows,
	pipeline.ErrNoFeatures,
	text.ErrNoDocuments,
	plot.ErrNoPoints,
	plot.ErrFeatureRange,
	fs.ErrNotExist,
}

func statusFor(err error) int {
	if errors.Is(err, pipeline.ErrBusy) {
		return http.StatusConflict
	}
	for _, target := range badInput {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
