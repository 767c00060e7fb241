package dispatcher

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarm-blackjack/service-gateway/internal/gwerrors"
	"github.com/swarm-blackjack/service-gateway/internal/proxy"
	"github.com/swarm-blackjack/service-gateway/internal/registry"
)

func TestSplitPath(t *testing.T) {
	cases := []struct {
		in      string
		service string
		epPath  string
		ok      bool
	}{
		{"/echo/ping", "echo", "/ping", true},
		{"/echo/a/b", "echo", "/a/b", true},
		{"/echo", "echo", "/", true},
		{"/", "", "", false},
	}
	for _, c := range cases {
		svc, ep, ok := SplitPath(c.in)
		assert.Equal(t, c.service, svc, c.in)
		assert.Equal(t, c.epPath, ep, c.in)
		assert.Equal(t, c.ok, ok, c.in)
	}
}

type fakeLookuper struct {
	result registry.LookupResult
	found  bool
}

func (f *fakeLookuper) Lookup(service string, method registry.Method, path string) (registry.LookupResult, bool) {
	return f.result, f.found
}

type fakeForwarder struct {
	called bool
	resp   proxy.Response
}

func (f *fakeForwarder) Forward(ctx context.Context, lookup registry.LookupResult, in proxy.Request) proxy.Response {
	f.called = true
	return f.resp
}

func TestDispatchNoRoute(t *testing.T) {
	d := New(&fakeLookuper{found: false}, &fakeForwarder{})
	_, err := d.Dispatch(context.Background(), http.MethodGet, "/unknown/path", proxy.Request{})
	require.Error(t, err)
	gwErr, ok := err.(*gwerrors.Error)
	require.True(t, ok)
	assert.Equal(t, gwerrors.NoRoute, gwErr.Kind)
}

func TestDispatchForwardsOnMatch(t *testing.T) {
	fwd := &fakeForwarder{resp: proxy.Response{Status: 200}}
	d := New(&fakeLookuper{found: true}, fwd)

	resp, err := d.Dispatch(context.Background(), http.MethodGet, "/echo/ping", proxy.Request{})
	require.NoError(t, err)
	assert.True(t, fwd.called)
	assert.Equal(t, 200, resp.Status)
}
