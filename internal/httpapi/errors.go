package httpapi

import (
	"encoding/json"
	"net/http"

	"modelkeeper/internal/lifecycle"
	"modelkeeper/pkg/types"
)

// statusFor maps lifecycle errors onto HTTP status codes. Failures reported
// by the remote service surface as 502 whatever status it answered with.
func statusFor(err error) int {
	switch {
	case lifecycle.IsNotFound(err):
		return http.StatusNotFound
	case lifecycle.IsNotAvailable(err):
		return http.StatusServiceUnavailable
	case lifecycle.IsTrainingClaimed(err):
		return http.StatusConflict
	case lifecycle.IsUnsupported(err):
		return http.StatusNotImplemented
	case lifecycle.IsRemoteService(err), lifecycle.IsTrainingLaunch(err), lifecycle.IsRetention(err), lifecycle.IsTrainingFailed(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
