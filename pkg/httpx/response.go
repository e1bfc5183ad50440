package httpx

import (
	"encoding/json"
	"net/http"
)

// Error codes used in the uniform error body.
const (
	CodeBadRequest         = "bad_request"
	CodeInvalidCredentials = "invalid_credentials"
	CodeUnauthorized       = "unauthorized"
	CodeNotFound           = "not_found"
	CodeValidationFailed   = "validation_failed"
	CodeInternal           = "internal"
)

// ErrorBody is the single error shape every failure path produces. Err is a
// string for simple failures and a structured list for validation failures.
// Debug carries internal detail and is only populated when the process debug
// flag is enabled.
type ErrorBody struct {
	Code  string `json:"code"`
	Err   any    `json:"error"`
	Debug string `json:"debug,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache prevents caching of sensitive responses like token payloads.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// WriteError writes the uniform error body.
func WriteError(w http.ResponseWriter, status int, code string, detail any) {
	WriteJSON(w, status, ErrorBody{Code: code, Err: detail})
}
