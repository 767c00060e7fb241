// Package proxy executes one forwarding attempt against a resolved
// upstream service and endpoint, and translates the http client's outcome
// into a client-visible response. Grounded on the teacher's
// instrumentedProxy/instrumentedProxyWithRewrite (time the call, wrap the
// ResponseWriter to observe status, log + publish after every attempt) —
// reimplemented as a direct client call instead of httputil.ReverseProxy
// so the outcome→status mapping in spec.md §4.F can be expressed exactly.
package proxy

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/swarm-blackjack/service-gateway/internal/eventbus"
	"github.com/swarm-blackjack/service-gateway/internal/gwerrors"
	"github.com/swarm-blackjack/service-gateway/internal/httpclient"
	"github.com/swarm-blackjack/service-gateway/internal/logring"
	"github.com/swarm-blackjack/service-gateway/internal/registry"
)

// hopByHopHeaders (and names starting with hopByHopPrefix) are stripped from the outbound request,
// per spec.md §4.F step 2.
var hopByHopHeaders = map[string]bool{
	"Host":              true,
	"Connection":        true,
	"Keep-Alive":        true,
	"Te":                true,
	"Trailer":           true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
}

const hopByHopPrefix = "Proxy-"

// buildOutboundHeaders copies only Content-Type from the inbound request,
// per spec.md §4.F step 2 — no authentication headers are added, and
// hop-by-hop headers are never forwarded regardless of what the inbound
// request carried.
func buildOutboundHeaders(in http.Header) http.Header {
	out := make(http.Header)
	for name, values := range in {
		if hopByHopHeaders[name] || strings.HasPrefix(name, hopByHopPrefix) {
			continue
		}
		if name != "Content-Type" {
			continue
		}
		for _, v := range values {
			out.Add(name, v)
		}
	}
	return out
}

// Request is the inbound side the dispatcher hands to the proxy: method,
// query string, headers, and body. It carries no inbound path — only the
// registered endpoint path is ever called.
type Request struct {
	Method      string
	Query       string
	Headers     http.Header
	Body        []byte
}

// Response is what the proxy hands back to the ingress layer to write.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Client is the subset of httpclient.Client the proxy needs, so tests can
// substitute a fake.
type Client interface {
	Call(ctx context.Context, method, url string, headers http.Header, body []byte, timeout time.Duration) httpclient.Outcome
}

// Proxy forwards one request to a resolved upstream.
type Proxy struct {
	client Client
	logs   *logring.Ring
	bus    *eventbus.Bus
}

// New builds a Proxy.
func New(client Client, logs *logring.Ring, bus *eventbus.Bus) *Proxy {
	return &Proxy{client: client, logs: logs, bus: bus}
}

// Forward composes the outbound URL from the resolved service+endpoint,
// strips hop-by-hop headers, calls the upstream, and maps the outcome to a
// Response. A single attempt is made; the proxy never retries.
func (p *Proxy) Forward(ctx context.Context, lookup registry.LookupResult, in Request) Response {
	targetURL := lookup.Service.InternalURL + lookup.Endpoint.Path
	if in.Query != "" {
		targetURL += "?" + in.Query
	}

	outHeaders := buildOutboundHeaders(in.Headers)

	start := time.Now()
	outcome := p.client.Call(ctx, string(lookup.Endpoint.Method), targetURL, outHeaders, in.Body, lookup.Endpoint.Timeout())
	latency := time.Since(start).Milliseconds()

	resp := p.mapOutcome(outcome, lookup.Endpoint.TimeoutSeconds)
	p.record(lookup.Service.Name, targetURL, resp.Status, outcome, latency)
	return resp
}

func (p *Proxy) mapOutcome(outcome httpclient.Outcome, timeoutSeconds int) Response {
	switch outcome.Kind {
	case httpclient.KindOk:
		headers := make(http.Header)
		if ct := outcome.Headers.Get("Content-Type"); ct != "" {
			headers.Set("Content-Type", ct)
		}
		return Response{Status: outcome.Status, Headers: headers, Body: outcome.Body}
	case httpclient.KindTimeout:
		return errorResponse(gwerrors.New(gwerrors.UpstreamTimeout, fmt.Sprintf("%ds", timeoutSeconds)))
	case httpclient.KindUnreachable:
		return errorResponse(gwerrors.New(gwerrors.UpstreamUnreachable, outcome.Cause))
	case httpclient.KindMalformed:
		return errorResponse(gwerrors.New(gwerrors.UpstreamMalformed, outcome.Cause))
	default:
		return errorResponse(gwerrors.New(gwerrors.Internal, "unrecognized outcome kind"))
	}
}

func errorResponse(err *gwerrors.Error) Response {
	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	body := fmt.Sprintf(`{"error":%q,"details":%q}`, err.Summary(), err.Details)
	return Response{Status: err.Status(), Headers: headers, Body: []byte(body)}
}

func (p *Proxy) record(service, upstreamURL string, status int, outcome httpclient.Outcome, latencyMs int64) {
	level := logring.LevelInfo
	msg := fmt.Sprintf("forwarded to %s", upstreamURL)
	if outcome.Kind != httpclient.KindOk {
		level = logring.LevelError
		msg = fmt.Sprintf("forward to %s failed: %v", upstreamURL, outcome.Kind)
	}

	entry := logring.Entry{
		Timestamp:   time.Now(),
		Level:       level,
		Category:    logring.CategoryForward,
		Message:     msg,
		Service:     service,
		UpstreamURL: upstreamURL,
		LatencyMs:   latencyMs,
		StatusCode:  status,
	}
	if p.logs != nil {
		p.logs.Append(entry)
	}
	if p.bus != nil {
		p.bus.Publish(entry)
	}
}
