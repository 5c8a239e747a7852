// Package api serves the simulator over HTTP.
//
// Routes:
//
//	GET  /health                    liveness and version
//	POST /graph_simulate            run a graph document (query: iterations, seed)
//	POST /validate                  list structural violations
//	POST /order                     evaluation order of computed nodes
//	GET  /scenarios                 catalog listing
//	GET  /scenarios/{name}          one catalog graph
//	POST /scenarios/{name}/simulate run a catalog graph
//	GET  /metrics                   Prometheus exposition, when enabled
package api

import (
	"context"
	"net/http"

	"github.com/signalsfoundry/riskgraph-simulator/core"
	"github.com/signalsfoundry/riskgraph-simulator/internal/logging"
	"github.com/signalsfoundry/riskgraph-simulator/internal/observability"
	"github.com/signalsfoundry/riskgraph-simulator/kb"
)

// Version is reported by /health.
var Version = "0.1.0"

const (
	defaultIterations   = 10000
	defaultMaxBodyBytes = 8 << 20
)

// Server holds the dependencies shared by all handlers.
type Server struct {
	engine  *core.Engine
	catalog *kb.KnowledgeBase
	metrics *observability.HTTPCollector
	log     logging.Logger

	iterations    int
	maxIterations int
	maxBodyBytes  int64
}

// Option customises Server construction.
type Option func(*Server)

// WithLogger sets the base logger for request logging.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCatalog exposes a scenario catalog under /scenarios.
func WithCatalog(c *kb.KnowledgeBase) Option {
	return func(s *Server) { s.catalog = c }
}

// WithMetrics records per-route metrics and serves /metrics.
func WithMetrics(c *observability.HTTPCollector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithIterations sets the iteration count used when a request omits one.
func WithIterations(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.iterations = n
		}
	}
}

// WithMaxIterations rejects requests asking for more than n iterations.
// Zero disables the ceiling.
func WithMaxIterations(n int) Option {
	return func(s *Server) {
		if n >= 0 {
			s.maxIterations = n
		}
	}
}

// WithMaxBodyBytes caps uploaded graph documents.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// NewServer builds a Server around engine. A nil engine uses core defaults.
func NewServer(engine *core.Engine, opts ...Option) *Server {
	if engine == nil {
		engine = core.NewEngine()
	}
	s := &Server{
		engine:       engine,
		log:          logging.Noop(),
		iterations:   defaultIterations,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "GET /health", "/health", s.handleHealth)
	s.route(mux, "POST /graph_simulate", "/graph_simulate", s.handleSimulate)
	s.route(mux, "POST /validate", "/validate", s.handleValidate)
	s.route(mux, "POST /order", "/order", s.handleOrder)
	s.route(mux, "GET /scenarios", "/scenarios", s.handleListScenarios)
	s.route(mux, "GET /scenarios/{name}", "/scenarios/{name}", s.handleGetScenario)
	s.route(mux, "POST /scenarios/{name}/simulate", "/scenarios/{name}/simulate", s.handleSimulateScenario)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// route registers h under pattern, labelled route for logs, spans and
// metrics. Request ids are attached before the span starts so the span can
// carry them.
func (s *Server) route(mux *http.ServeMux, pattern, route string, h func(http.ResponseWriter, *http.Request) error) {
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.fail(w, r, err)
		}
	})
	handler = TracingMiddleware(route, handler)
	handler = RequestIDMiddleware(s.log, route, handler)
	if s.metrics != nil {
		handler = s.metrics.Middleware(route, handler)
	}
	mux.Handle(pattern, handler)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	log := s.logger(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(r.Context(), "request failed", logging.Int("status", status), logging.Err(err))
	} else {
		log.Info(r.Context(), "request rejected", logging.Int("status", status), logging.Err(err))
	}
	if werr := writeJSON(w, status, errorDocument(err)); werr != nil {
		log.Warn(r.Context(), "write error response", logging.Err(werr))
	}
}

func (s *Server) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}
