package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tabletalk-dev/tabletalk/pkg/api"
)

// statusFromError maps a service error to the HTTP status code of the
// response. Validation failures are the caller's fault; everything else
// surfaces as a server error.
func statusFromError(err error) int {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Type == api.ErrorTypeValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeJSON serializes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an ErrorBody response for err, deriving the status
// code from the error type.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFromError(err), api.ErrorBody{Error: err.Error()})
}
