package registry

import (
	"sync"
	"time"

	"github.com/swarm-blackjack/service-gateway/internal/clock"
)

// Registry is the single source of truth for routing: which services
// exist, what endpoints they expose, and whether they are still live.
//
// Concurrency discipline (spec.md §5): a single writer lock guards Upsert,
// MarkStaleOlderThan, and EvictOlderThan. Lookup and Snapshot take a read
// lock just long enough to copy the data a caller needs, then release it —
// the registry is never held across an outbound HTTP call.
type Registry struct {
	mu       sync.RWMutex
	services map[string]Service
	clock    clock.Clock
}

// New builds an empty Registry using the given Clock for first_seen /
// last_heartbeat timestamps.
func New(c clock.Clock) *Registry {
	return &Registry{
		services: make(map[string]Service),
		clock:    c,
	}
}

// Upsert validates req and atomically replaces-or-inserts the named
// service. Re-registration fully replaces the endpoint list; there is no
// partial merge (spec.md §3 invariant).
func (r *Registry) Upsert(req RegisterRequest) (Service, Outcome, error) {
	svc, err := validateAndFill(req)
	if err != nil {
		return Service{}, 0, err
	}

	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.services[svc.Name]
	if exists {
		svc.FirstSeen = existing.FirstSeen
	} else {
		svc.FirstSeen = now
	}
	svc.LastHeartbeat = now
	svc.Status = StatusActive

	r.services[svc.Name] = svc

	outcome := Created
	if exists {
		outcome = Refreshed
	}
	return svc.clone(), outcome, nil
}

// LookupResult is what the dispatcher needs to drive a forward: the
// owning service record (for internal_url) and the matched endpoint (for
// its timeout).
type LookupResult struct {
	Service  Service
	Endpoint Endpoint
}

// Lookup resolves (serviceName, method, path) to a service+endpoint pair.
// Matching is exact — no prefix, no wildcard, no trailing-slash folding.
// ok is false when no route matches, whatever the reason (unknown
// service, wrong method, unknown path).
func (r *Registry) Lookup(serviceName string, method Method, path string) (LookupResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, exists := r.services[serviceName]
	if !exists {
		return LookupResult{}, false
	}
	for _, ep := range svc.Endpoints {
		if ep.Method == method && ep.Path == path {
			return LookupResult{Service: svc.clone(), Endpoint: ep}, true
		}
	}
	return LookupResult{}, false
}

// MarkStaleOlderThan transitions ACTIVE → STALE for every record whose
// last_heartbeat is older than now−threshold. Returns the names that
// transitioned, for the sweeper to log.
func (r *Registry) MarkStaleOlderThan(threshold time.Duration) []string {
	cutoff := r.clock.Now().Add(-threshold)

	r.mu.Lock()
	defer r.mu.Unlock()

	var transitioned []string
	for name, svc := range r.services {
		if svc.Status == StatusActive && svc.LastHeartbeat.Before(cutoff) {
			svc.Status = StatusStale
			r.services[name] = svc
			transitioned = append(transitioned, name)
		}
	}
	return transitioned
}

// EvictOlderThan unconditionally removes records whose last_heartbeat is
// older than now−threshold, regardless of status. Returns the names
// removed, for the sweeper to log.
func (r *Registry) EvictOlderThan(threshold time.Duration) []string {
	cutoff := r.clock.Now().Add(-threshold)

	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for name, svc := range r.services {
		if svc.LastHeartbeat.Before(cutoff) {
			delete(r.services, name)
			evicted = append(evicted, name)
		}
	}
	return evicted
}

// Snapshot returns a consistent, independently-owned view of every
// registered service, for the dashboard.
func (r *Registry) Snapshot() map[string]Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Service, len(r.services))
	for name, svc := range r.services {
		out[name] = svc.clone()
	}
	return out
}

// Count returns the number of currently registered services.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}
