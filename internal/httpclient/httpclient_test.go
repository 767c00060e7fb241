package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallOkPassesThroughAnyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New()
	outcome := c.Call(context.Background(), http.MethodGet, srv.URL, nil, nil, 2*time.Second)
	require.Equal(t, KindOk, outcome.Kind)
	assert.Equal(t, http.StatusTeapot, outcome.Status)
	assert.Equal(t, `{"ok":true}`, string(outcome.Body))
}

func TestCallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New()
	start := time.Now()
	outcome := c.Call(context.Background(), http.MethodGet, srv.URL, nil, nil, 50*time.Millisecond)
	elapsed := time.Since(start)

	assert.Equal(t, KindTimeout, outcome.Kind)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestCallUnreachable(t *testing.T) {
	c := New()
	outcome := c.Call(context.Background(), http.MethodGet, "http://127.0.0.1:1", nil, nil, time.Second)
	assert.Equal(t, KindUnreachable, outcome.Kind)
}

func TestCallMalformedWhenBodyExceedsCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 100))
	}))
	defer srv.Close()

	c := New(WithMaxBodyBytes(10))
	outcome := c.Call(context.Background(), http.MethodGet, srv.URL, nil, nil, time.Second)
	assert.Equal(t, KindMalformed, outcome.Kind)
}
