// Package dispatcher resolves an inbound public path against the registry
// and drives the proxy, per spec.md §4.E. The service is found with a keyed
// map lookup; that one service's endpoint list is then scanned for the
// exact (method, path) pair, so a lookup is linear in the service's
// endpoint count, not O(1). Other services' routes are never enumerated.
package dispatcher

import (
	"context"
	"strings"

	"github.com/swarm-blackjack/service-gateway/internal/gwerrors"
	"github.com/swarm-blackjack/service-gateway/internal/proxy"
	"github.com/swarm-blackjack/service-gateway/internal/registry"
)

// Forwarder is the subset of *proxy.Proxy the dispatcher needs.
type Forwarder interface {
	Forward(ctx context.Context, lookup registry.LookupResult, in proxy.Request) proxy.Response
}

// Lookuper is the subset of *registry.Registry the dispatcher needs.
type Lookuper interface {
	Lookup(serviceName string, method registry.Method, path string) (registry.LookupResult, bool)
}

// Dispatcher resolves public paths and forwards matched requests.
type Dispatcher struct {
	registry Lookuper
	proxy    Forwarder
}

// New builds a Dispatcher.
func New(reg Lookuper, p Forwarder) *Dispatcher {
	return &Dispatcher{registry: reg, proxy: p}
}

// SplitPath splits a public path "/<service>/<rest...>" into the service
// segment and the endpoint path (with its leading slash preserved). The
// input must already have its leading slash; callers typically pass
// r.URL.Path directly.
func SplitPath(publicPath string) (service string, endpointPath string, ok bool) {
	trimmed := strings.TrimPrefix(publicPath, "/")
	if trimmed == "" {
		return "", "", false
	}
	idx := strings.IndexByte(trimmed, '/')
	if idx < 0 {
		return trimmed, "/", true
	}
	service = trimmed[:idx]
	endpointPath = trimmed[idx:]
	return service, endpointPath, service != ""
}

// Dispatch resolves method+publicPath against the registry and, on a
// match, forwards the request. Returns a 404 NO_ROUTE error when no
// (service, method, path) triple matches — exactly, no prefix or wildcard
// matching, no trailing-slash folding.
func (d *Dispatcher) Dispatch(ctx context.Context, method, publicPath string, in proxy.Request) (proxy.Response, error) {
	service, endpointPath, ok := SplitPath(publicPath)
	if !ok {
		return proxy.Response{}, gwerrors.New(gwerrors.NoRoute, publicPath)
	}

	lookup, found := d.registry.Lookup(service, registry.Method(strings.ToUpper(method)), endpointPath)
	if !found {
		return proxy.Response{}, gwerrors.New(gwerrors.NoRoute, method+" "+publicPath)
	}

	resp := d.proxy.Forward(ctx, lookup, in)
	return resp, nil
}
