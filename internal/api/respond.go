package api

import (
	"encoding/json"
	"net/http"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
)

// errorResponse is the error envelope.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{Error: message, Details: details})
}

// errorDetails is the client-safe description of err: the structured
// message when there is one, never the cause.
func errorDetails(err error) string {
	if e, ok := ferrors.As(err); ok {
		return e.Message
	}
	return err.Error()
}
