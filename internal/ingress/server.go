// Package ingress is the gateway's public HTTP surface: POST /register,
// GET / (dashboard), GET /health, GET /events (SSE log tail), and a
// catch-all that delegates to the dispatcher. Grounded on the teacher's
// main.go route table (http.ServeMux + corsMiddleware wrapping everything)
// and its observabilitySSEHandler for the /events feed.
package ingress

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/swarm-blackjack/service-gateway/internal/dispatcher"
	"github.com/swarm-blackjack/service-gateway/internal/eventbus"
	"github.com/swarm-blackjack/service-gateway/internal/gwerrors"
	"github.com/swarm-blackjack/service-gateway/internal/logring"
	"github.com/swarm-blackjack/service-gateway/internal/proxy"
	"github.com/swarm-blackjack/service-gateway/internal/registry"
)

// Registrar is the subset of *registry.Registry the ingress layer needs
// directly (the dispatcher holds its own Lookuper for forwarding).
type Registrar interface {
	Upsert(req registry.RegisterRequest) (registry.Service, registry.Outcome, error)
	Snapshot() map[string]registry.Service
	Count() int
}

// Server wires the registry, dispatcher, log ring, and event bus into an
// http.Handler.
type Server struct {
	registry   Registrar
	dispatcher *dispatcher.Dispatcher
	logs       *logring.Ring
	bus        *eventbus.Bus
	mux        *http.ServeMux
}

// New builds a Server and installs its fixed routes. The dispatcher's
// catch-all handles every path not claimed by /register, /, /health, or
// /events — service routes are resolved dynamically per request, never by
// mutating this mux.
func New(reg Registrar, disp *dispatcher.Dispatcher, logs *logring.Ring, bus *eventbus.Bus) *Server {
	s := &Server{registry: reg, dispatcher: disp, logs: logs, bus: bus}

	mux := http.NewServeMux()
	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/", s.handleRootOrCatchAll)
	s.mux = mux

	return s
}

// ServeHTTP lets Server be used directly as an http.Handler, with CORS
// applied gateway-wide (spec.md §9 supplement, grounded on the teacher's
// corsMiddleware).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}

// handleRootOrCatchAll dispatches GET / to the dashboard and everything
// else to the route dispatcher, since http.ServeMux registers "/" as the
// catch-all pattern.
func (s *Server) handleRootOrCatchAll(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		s.handleDashboard(w, r)
		return
	}
	s.handleForward(w, r)
}

type registerResponse struct {
	Status        string            `json:"status"`
	Message       string            `json:"message"`
	Service       registry.Service  `json:"service"`
	RoutesCreated int               `json:"routes_created"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		gwerrors.New(gwerrors.InvalidRegistration, "could not read request body").WriteJSON(w)
		return
	}

	var req registry.RegisterRequest
	if err := json.Unmarshal(body, &req); err != nil {
		gwerrors.New(gwerrors.InvalidRegistration, "malformed JSON body").WriteJSON(w)
		return
	}

	svc, outcome, err := s.registry.Upsert(req)
	if err != nil {
		if gwErr, ok := err.(*gwerrors.Error); ok {
			s.logReject(req.Name, gwErr)
			gwErr.WriteJSON(w)
			return
		}
		gwerrors.New(gwerrors.Internal, err.Error()).WriteJSON(w)
		return
	}

	s.logRegister(svc, outcome)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(registerResponse{
		Status:        "success",
		Message:       fmt.Sprintf("Service '%s' registered", svc.Name),
		Service:       svc,
		RoutesCreated: len(svc.Endpoints),
	})
}

type dashboardResponse struct {
	HubStatus    string                      `json:"hub_status"`
	Mode         string                      `json:"mode"`
	Services     map[string]registry.Service `json:"services"`
	ServiceCount int                         `json:"service_count"`
	Logs         []logring.Entry             `json:"logs"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	services := s.registry.Snapshot()
	var logs []logring.Entry
	if s.logs != nil {
		logs = s.logs.Snapshot()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dashboardResponse{
		HubStatus:    "running",
		Mode:         "service_registration",
		Services:     services,
		ServiceCount: len(services),
		Logs:         logs,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":             "healthy",
		"service":            "gateway",
		"services_registered": s.registry.Count(),
	})
}

func (s *Server) handleForward(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		gwerrors.New(gwerrors.Internal, "could not read request body").WriteJSON(w)
		return
	}

	resp, err := s.dispatcher.Dispatch(r.Context(), r.Method, r.URL.Path, proxy.Request{
		Method:  r.Method,
		Query:   r.URL.RawQuery,
		Headers: r.Header,
		Body:    body,
	})
	if err != nil {
		if gwErr, ok := err.(*gwerrors.Error); ok {
			gwErr.WriteJSON(w)
			return
		}
		gwerrors.New(gwerrors.Internal, err.Error()).WriteJSON(w)
		return
	}

	for name, values := range resp.Headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

// handleEvents streams the log ring's live tail over Server-Sent Events,
// grounded directly on the teacher's observabilitySSEHandler.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	if s.bus == nil {
		fmt.Fprintf(w, "event: connected\ndata: {\"service\":\"gateway\"}\n\n")
		flusher.Flush()
		<-r.Context().Done()
		return
	}

	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)

	fmt.Fprintf(w, "event: connected\ndata: {\"service\":\"gateway\"}\n\n")
	flusher.Flush()

	for {
		select {
		case entry, ok := <-ch:
			if !ok {
				return
			}
			data, _ := json.Marshal(entry)
			fmt.Fprintf(w, "event: log\ndata: %s\n\n", data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) logRegister(svc registry.Service, outcome registry.Outcome) {
	verb := "registered"
	if outcome == registry.Refreshed {
		verb = "re-registered"
	}
	entry := logring.Entry{
		Timestamp: time.Now(),
		Level:     logring.LevelInfo,
		Category:  logring.CategoryRegister,
		Message:   fmt.Sprintf("service %q %s with %d endpoint(s)", svc.Name, verb, len(svc.Endpoints)),
		Service:   svc.Name,
	}
	if s.logs != nil {
		s.logs.Append(entry)
	}
	if s.bus != nil {
		s.bus.Publish(entry)
	}
}

func (s *Server) logReject(name string, err *gwerrors.Error) {
	entry := logring.Entry{
		Timestamp: time.Now(),
		Level:     logring.LevelWarn,
		Category:  logring.CategoryReject,
		Message:   fmt.Sprintf("registration rejected for %q: %s", name, err.Error()),
		Service:   name,
	}
	if s.logs != nil {
		s.logs.Append(entry)
	}
	if s.bus != nil {
		s.bus.Publish(entry)
	}
}
