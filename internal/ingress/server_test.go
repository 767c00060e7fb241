package ingress

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarm-blackjack/service-gateway/internal/clock"
	"github.com/swarm-blackjack/service-gateway/internal/dispatcher"
	"github.com/swarm-blackjack/service-gateway/internal/httpclient"
	"github.com/swarm-blackjack/service-gateway/internal/logring"
	"github.com/swarm-blackjack/service-gateway/internal/proxy"
	"github.com/swarm-blackjack/service-gateway/internal/registry"
)

func newTestServer(c clock.Clock) (*Server, *registry.Registry) {
	reg := registry.New(c)
	client := httpclient.New()
	logs := logring.New(100)
	px := proxy.New(client, logs, nil)
	disp := dispatcher.New(reg, px)
	return New(reg, disp, logs, nil), reg
}

func TestHappyPathRegisterAndForward(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ping", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	server, _ := newTestServer(clock.System{})

	regBody, _ := json.Marshal(map[string]interface{}{
		"name":         "echo",
		"internal_url": upstream.URL,
		"endpoints": []map[string]interface{}{
			{"path": "/ping", "method": "GET", "timeout": 5},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(regBody))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	fwdReq := httptest.NewRequest(http.MethodGet, "/echo/ping", nil)
	fwdRec := httptest.NewRecorder()
	server.ServeHTTP(fwdRec, fwdReq)

	assert.Equal(t, http.StatusOK, fwdRec.Code)
	assert.JSONEq(t, `{"ok":true}`, fwdRec.Body.String())
}

func TestRouteReplacementScenario(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	server, _ := newTestServer(clock.System{})

	register := func(paths ...string) {
		eps := make([]map[string]interface{}, 0, len(paths))
		for _, p := range paths {
			eps = append(eps, map[string]interface{}{"path": p})
		}
		body, _ := json.Marshal(map[string]interface{}{
			"name":         "echo",
			"internal_url": upstream.URL,
			"endpoints":    eps,
		})
		req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	register("/a", "/b")
	register("/b", "/c")

	assertStatus := func(path string, want int) {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, path)
	}

	assertStatus("/echo/a", http.StatusNotFound)
	assertStatus("/echo/b", http.StatusOK)
	assertStatus("/echo/c", http.StatusOK)
}

func TestReservedNameRejected(t *testing.T) {
	server, reg := newTestServer(clock.System{})

	body, _ := json.Marshal(map[string]interface{}{
		"name":         "register",
		"internal_url": "http://x.local",
		"endpoints":    []map[string]interface{}{{"path": "/a"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, reg.Count())

	dashReq := httptest.NewRequest(http.MethodGet, "/", nil)
	dashRec := httptest.NewRecorder()
	server.ServeHTTP(dashRec, dashReq)

	var dash dashboardResponse
	require.NoError(t, json.Unmarshal(dashRec.Body.Bytes(), &dash))
	assert.Equal(t, 0, dash.ServiceCount)
}

func TestUpstreamUnreachable(t *testing.T) {
	server, _ := newTestServer(clock.System{})

	body, _ := json.Marshal(map[string]interface{}{
		"name":         "x",
		"internal_url": "http://127.0.0.1:1",
		"endpoints":    []map[string]interface{}{{"path": "/op"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	fwdReq := httptest.NewRequest(http.MethodPost, "/x/op", nil)
	fwdRec := httptest.NewRecorder()
	server.ServeHTTP(fwdRec, fwdReq)

	assert.Equal(t, http.StatusBadGateway, fwdRec.Code)
}

func TestStaleThenEvictViaDispatch(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	server, reg := newTestServer(fc)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	body, _ := json.Marshal(map[string]interface{}{
		"name":         "s",
		"internal_url": upstream.URL,
		"endpoints":    []map[string]interface{}{{"path": "/op"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	fc.Advance(16 * time.Minute)
	reg.MarkStaleOlderThan(15 * time.Minute)

	fwdReq := httptest.NewRequest(http.MethodPost, "/s/op", nil)
	fwdRec := httptest.NewRecorder()
	server.ServeHTTP(fwdRec, fwdReq)
	assert.Equal(t, http.StatusOK, fwdRec.Code, "stale service still forwards")

	fc.Advance(45 * time.Minute)
	reg.EvictOlderThan(60 * time.Minute)

	fwdReq2 := httptest.NewRequest(http.MethodPost, "/s/op", nil)
	fwdRec2 := httptest.NewRecorder()
	server.ServeHTTP(fwdRec2, fwdReq2)
	assert.Equal(t, http.StatusNotFound, fwdRec2.Code, "evicted service must 404")
}
