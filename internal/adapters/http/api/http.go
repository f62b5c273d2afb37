// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/app1/internal/adapters/http/throttle"
	"github.com/okian/app1/internal/domain/model"
	"github.com/okian/app1/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Fetch builds the GET envelope.
	Fetch(ctx context.Context) model.Envelope
	// Receive builds the POST envelope echoing input.
	Receive(ctx context.Context, input map[string]any) model.Envelope
	// BasePath is the prefix the data routes are mounted under.
	BasePath() string
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	dataHandler   *DataHandler
	throttle      *throttle.Throttle
	logger        logger.Logger
	basePath      string
	trusted       []netip.Prefix
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithThrottle limits the data routes with t.
func WithThrottle(t *throttle.Throttle) ServerOption {
	return func(s *Server) {
		s.throttle = t
	}
}

// WithMaxBodyBytes caps POST bodies. Zero disables the cap.
func WithMaxBodyBytes(n int64) ServerOption {
	return func(s *Server) {
		if n >= 0 {
			s.dataHandler.maxBodyBytes = n
		}
	}
}

// WithTrustedProxies honours forwarding headers only from peers inside
// prefixes. Without it the socket peer identifies every client.
func WithTrustedProxies(prefixes []netip.Prefix) ServerOption {
	return func(s *Server) {
		s.trusted = prefixes
	}
}

// WithServerLogger sets the logger used for access logs and handler errors.
func WithServerLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
			s.dataHandler.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		dataHandler:   NewDataHandler(deps),
		throttle:      throttle.New(0),
		logger:        logger.Nop(),
		basePath:      deps.BasePath(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	dataPath := model.DataPath(s.basePath)

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET "+dataPath, MetricsMiddleware(
		ThrottleMiddleware(s.dataHandler.HandleGetData, s.throttle, "data"), "data"))
	mux.HandleFunc("POST "+dataPath, MetricsMiddleware(
		ThrottleMiddleware(s.dataHandler.HandlePostData, s.throttle, "data"), "data"))
	// Any other method on the resource.
	mux.HandleFunc(dataPath, MetricsMiddleware(s.dataHandler.HandleMethodNotAllowed, "data"))

	mux.HandleFunc("/", MetricsMiddleware(handleNotFound, "not_found"))
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", nil)
}

// Handler wraps h with the process-wide middleware stack: real client IP
// from trusted proxies, request id, access log and panic recovery.
func (s *Server) Handler(h http.Handler) http.Handler {
	h = middleware.Recoverer(h)
	h = AccessLog(s.logger)(h)
	h = RequestID(h)
	h = TrustedRealIP(s.trusted)(h)
	return h
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = publicMessage(err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
