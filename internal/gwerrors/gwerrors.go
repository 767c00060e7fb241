// Package gwerrors defines the stable error kinds the gateway returns to
// callers, and the HTTP status/body each one maps to.
package gwerrors

import (
	"encoding/json"
	"net/http"
)

// Kind is a stable tag identifying a class of gateway error. Wire responses
// carry both an "error" summary and a "details" string.
type Kind string

const (
	InvalidRegistration Kind = "INVALID_REGISTRATION"
	ReservedName         Kind = "RESERVED_NAME"
	NoRoute              Kind = "NO_ROUTE"
	UpstreamTimeout      Kind = "UPSTREAM_TIMEOUT"
	UpstreamUnreachable  Kind = "UPSTREAM_UNREACHABLE"
	UpstreamMalformed    Kind = "UPSTREAM_MALFORMED"
	Internal             Kind = "INTERNAL"
)

var statusByKind = map[Kind]int{
	InvalidRegistration: http.StatusBadRequest,
	ReservedName:        http.StatusBadRequest,
	NoRoute:             http.StatusNotFound,
	UpstreamTimeout:     http.StatusGatewayTimeout,
	UpstreamUnreachable: http.StatusBadGateway,
	UpstreamMalformed:   http.StatusBadGateway,
	Internal:            http.StatusInternalServerError,
}

var summaryByKind = map[Kind]string{
	InvalidRegistration: "Invalid registration",
	ReservedName:        "Reserved service name",
	NoRoute:             "Not found",
	UpstreamTimeout:     "Upstream timeout",
	UpstreamUnreachable: "Internal service error",
	UpstreamMalformed:   "Malformed upstream response",
	Internal:             "Internal error",
}

// Error is the gateway's canonical error type. It always carries a Kind so
// handlers can map it to the right HTTP status without re-inspecting the
// message.
type Error struct {
	Kind    Kind
	Details string
}

func (e *Error) Error() string {
	if e.Details == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Details
}

// New constructs an *Error for the given kind with details.
func New(kind Kind, details string) *Error {
	return &Error{Kind: kind, Details: details}
}

// Status returns the HTTP status code this error kind maps to.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Summary returns the short human-readable label for this error's kind.
func (e *Error) Summary() string {
	if s, ok := summaryByKind[e.Kind]; ok {
		return s
	}
	return string(e.Kind)
}

// Body is the wire shape written for any gateway error.
type Body struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// WriteJSON writes the error as the spec's {"error":..., "details":...}
// JSON body with the status appropriate to its kind.
func (e *Error) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status())
	json.NewEncoder(w).Encode(Body{Error: e.Summary(), Details: e.Details})
}
