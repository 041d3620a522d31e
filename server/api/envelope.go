package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// Error codes used in error envelopes.
const (
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
	CodeValidation      = "validation_error"
	CodeNotFound        = "not_found"
	CodeInternal        = "internal"
)

// Meta accompanies every response. Total, Limit, and Offset are only set on
// list responses.
type Meta struct {
	Timestamp string `json:"timestamp"`
	Total     *int   `json:"total,omitempty"`
	Limit     *int   `json:"limit,omitempty"`
	Offset    *int   `json:"offset,omitempty"`
}

// Envelope wraps a successful payload.
type Envelope struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorBody is the error half of an error envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps a failure.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
	Meta  Meta      `json:"meta"`
}

func newMeta() Meta {
	return Meta{Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes a single-resource success envelope.
func WriteData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Data: data, Meta: newMeta()})
}

// WriteList writes a collection success envelope with pagination meta.
func WriteList(w http.ResponseWriter, status int, data any, total, limit, offset int) {
	meta := newMeta()
	meta.Total = &total
	meta.Limit = &limit
	meta.Offset = &offset
	writeJSON(w, status, Envelope{Data: data, Meta: meta})
}

// WriteError writes an error envelope. The message must be safe to show to
// a user; storage detail belongs in the server log, not here.
func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, ErrorEnvelope{
		Error: ErrorBody{Code: code, Message: message, Details: details},
		Meta:  newMeta(),
	})
}
