// Package registry holds the authoritative, in-memory mapping of services
// to their endpoints, and the heartbeat/stale/evict state machine that
// governs route lifetime. Grounded on
// _examples/other_examples/22f706e5_arx-os-arxos__...service_registry.go
// (RWMutex-guarded map, TTL-based staleness, periodic cleanup) adapted to
// this spec's two-threshold (stale vs evict) model and registration-shaped
// (not health-check-shaped) liveness.
package registry

import "time"

// Status is a service record's lifecycle state.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusStale  Status = "STALE"
)

// Method is an allowed HTTP verb for a registered endpoint.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodPatch  Method = "PATCH"
)

var allowedMethods = map[Method]bool{
	MethodGet:    true,
	MethodPost:   true,
	MethodPut:    true,
	MethodDelete: true,
	MethodPatch:  true,
}

const (
	defaultMethod         = MethodPost
	defaultTimeoutSeconds = 30
	minTimeoutSeconds     = 1
	maxTimeoutSeconds     = 600
)

// Endpoint is an immutable-once-stored (method, path, timeout) descriptor
// owned by a service.
type Endpoint struct {
	Path           string            `json:"path"`
	Method         Method            `json:"method"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	Description    string            `json:"description,omitempty"`
	InputSchema    map[string]string `json:"input_schema,omitempty"`
}

// Timeout returns the endpoint's timeout as a time.Duration.
func (e Endpoint) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// Service is a registered backend and everything the registry knows about
// it.
type Service struct {
	Name          string     `json:"name"`
	InternalURL   string     `json:"internal_url"`
	Endpoints     []Endpoint `json:"endpoints"`
	FirstSeen     time.Time  `json:"first_seen"`
	LastHeartbeat time.Time  `json:"last_heartbeat"`
	Status        Status     `json:"status"`
}

// clone returns a deep copy of s so a caller can retain it past the
// registry lock without racing a concurrent replace.
func (s Service) clone() Service {
	eps := make([]Endpoint, len(s.Endpoints))
	copy(eps, s.Endpoints)
	for i, ep := range eps {
		if ep.InputSchema != nil {
			schema := make(map[string]string, len(ep.InputSchema))
			for k, v := range ep.InputSchema {
				schema[k] = v
			}
			eps[i].InputSchema = schema
		}
	}
	s.Endpoints = eps
	return s
}

// RegisterRequest is the inbound shape for a registration call, prior to
// validation and default-filling.
type RegisterRequest struct {
	Name         string            `json:"name"`
	InternalURL  string            `json:"internal_url"`
	Endpoints    []EndpointRequest `json:"endpoints"`
}

// EndpointRequest is one endpoint entry within a RegisterRequest, with
// optional fields not yet defaulted.
type EndpointRequest struct {
	Path        string            `json:"path"`
	Method      string            `json:"method,omitempty"`
	Timeout     *int              `json:"timeout,omitempty"`
	Description string            `json:"description,omitempty"`
	InputSchema map[string]string `json:"input_schema,omitempty"`
}

// Outcome reports whether an upsert created a new record or refreshed an
// existing one.
type Outcome int

const (
	Created Outcome = iota
	Refreshed
)
