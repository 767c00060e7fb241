// Package httpclient issues outbound requests on behalf of the proxy with a
// total wall-clock timeout covering connect, send, and receive, and
// classifies every failure into one of the outcome kinds spec.md §4.C
// requires. Grounded on the teacher's ad hoc `&http.Client{Timeout: ...}`
// calls (checkUpstream, devResetHandler) generalized into one reusable
// collaborator.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"
)

const defaultMaxBodyBytes = 1 << 20 // 1 MiB

// OutcomeKind tags which branch of Outcome is populated.
type OutcomeKind int

const (
	KindOk OutcomeKind = iota
	KindTimeout
	KindUnreachable
	KindMalformed
)

// Outcome is the result of one outbound call. Exactly one branch is
// meaningful, selected by Kind.
type Outcome struct {
	Kind    OutcomeKind
	Status  int
	Headers http.Header
	Body    []byte
	Cause   string
}

// Client issues outbound HTTP calls with a per-call timeout and a capped
// response body.
type Client struct {
	http        *http.Client
	maxBodyBytes int64
}

// Option configures a Client.
type Option func(*Client)

// WithMaxBodyBytes overrides the default 1 MiB response body cap.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// New builds a Client. The underlying *http.Client has no fixed Timeout —
// each Call supplies its own, since endpoints register distinct
// timeout_seconds values.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        256,
				MaxIdleConnsPerHost: 64,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call issues one request and classifies the result. timeout is the total
// wall-clock bound for connect + send + receive.
func (c *Client) Call(ctx context.Context, method, url string, headers http.Header, body []byte, timeout time.Duration) Outcome {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return Outcome{Kind: KindUnreachable, Cause: err.Error()}
	}
	if headers != nil {
		req.Header = headers.Clone()
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Outcome{Kind: KindTimeout}
		}
		return Outcome{Kind: KindUnreachable, Cause: classifyTransportErr(err)}
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, c.maxBodyBytes+1)
	data, readErr := io.ReadAll(limited)
	if readErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Outcome{Kind: KindTimeout}
		}
		return Outcome{Kind: KindMalformed, Cause: readErr.Error()}
	}
	if int64(len(data)) > c.maxBodyBytes {
		return Outcome{Kind: KindMalformed, Cause: "response body exceeds cap"}
	}

	return Outcome{
		Kind:    KindOk,
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Body:    data,
	}
}

func classifyTransportErr(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Err.Error()
	}
	return err.Error()
}
