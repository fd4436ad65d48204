package api

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes v with the given status. Every endpoint on this surface
// replies with a JSON body, error paths included, so decision and audit
// responses stay machine-readable end to end.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the envelope for every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
}

// writeError wraps msg in the standard envelope. Clients never see bare text.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
