package server

import (
	"encoding/json"
	"net/http"
)

const (
	codeBadRequest = "bad_request"
	codeNotFound   = "not_found"
	codeFailed     = "command_failed"
	codeInternal   = "internal_error"
)

// errorResponse is the body of a failed invocation. Error carries the
// command's message unchanged so the UI can show it as is.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // best effort, the client may be gone
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}
