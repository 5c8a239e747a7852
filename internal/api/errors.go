package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/signalsfoundry/riskgraph-simulator/core"
	"github.com/signalsfoundry/riskgraph-simulator/internal/sampling"
	"github.com/signalsfoundry/riskgraph-simulator/kb"
)

var (
	// ErrBadRequest is a package-level sentinel for malformed query parameters
	// and request bodies.
	ErrBadRequest = errors.New("bad request")
	// ErrNotFound is used when a catalog entry cannot be located.
	ErrNotFound = errors.New("not found")
)

// errorBody is the JSON document returned for every non-2xx response.
type errorBody struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations,omitempty"`
}

// StatusFor maps simulator errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrNotFound),
		errors.Is(err, kb.ErrScenarioNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrBadRequest),
		errors.Is(err, core.ErrInvalidGraph),
		errors.Is(err, core.ErrCycleDetected),
		errors.Is(err, core.ErrInvalidIterations),
		errors.Is(err, core.ErrNilGraph),
		errors.Is(err, sampling.ErrUnsupportedDistribution):
		return http.StatusBadRequest

	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable

	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusInternalServerError
	}
}

func errorDocument(err error) errorBody {
	body := errorBody{Error: err.Error()}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		body.Violations = verr.Violations
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
