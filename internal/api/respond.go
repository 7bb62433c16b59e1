// Package api holds shared HTTP transport helpers: JSON responses and the
// error body contract. Every non-2xx response carries {"error": "..."} and,
// where it matters, a machine-readable "reason".
package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrorBody is the wire shape of every failure response.
type ErrorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// Reason codes for 404s that the participant flow must tell apart.
const (
	ReasonNoMatch        = "no_match"
	ReasonMatchingNotRun = "matching_not_run"
)

// JSON writes a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response body")
	}
}

// Error writes an error response.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{Error: msg})
}

// ErrorWithReason writes an error response with a reason code.
func ErrorWithReason(w http.ResponseWriter, status int, msg, reason string) {
	JSON(w, status, ErrorBody{Error: msg, Reason: reason})
}

// Decode reads a JSON request body into dst.
func Decode(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
