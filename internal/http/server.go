// Package http exposes records, statistics and report exports over a JSON
// API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"keswan/internal/log"
	"keswan/internal/metrics"
	"keswan/internal/middleware/ratelimit"
	"keswan/internal/middleware/security"
	"keswan/internal/services"
	"keswan/internal/sheets"
)

// Deps are the services behind the API. Jobs, References and Metrics may
// be nil.
type Deps struct {
	Records    *services.RecordService
	Reports    *services.ReportService
	Jobs       *services.ExportJobs
	References sheets.ReferenceReader
	Metrics    *metrics.Metrics
	Logger     *log.Logger
	// RateLimit bounds write requests per client per minute; zero uses the
	// limiter default.
	RateLimit int
}

type Server struct {
	http.Server
	records    *services.RecordService
	reports    *services.ReportService
	jobs       *services.ExportJobs
	references sheets.ReferenceReader
	metrics    *metrics.Metrics
	logger     *log.Logger
	limiter    *ratelimit.Limiter
	detector   *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	s := &Server{
		records:    deps.Records,
		reports:    deps.Reports,
		jobs:       deps.Jobs,
		references: deps.References,
		metrics:    deps.Metrics,
		logger:     logger.WithComponent(log.ComponentHTTP),
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimit}),
		detector:   security.NewDetector(),
	}

	mux := http.NewServeMux()
	s.handle(mux, "GET /healthz", handleHealth)
	s.handle(mux, "GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	s.handle(mux, "GET /api/records", s.handleListRecords)
	s.handle(mux, "POST /api/records", s.handleCreateRecord)
	s.handle(mux, "GET /api/records/{id}", s.handleGetRecord)
	s.handle(mux, "PUT /api/records/{id}", s.handleReplaceRecord)
	s.handle(mux, "DELETE /api/records/{id}", s.handleDeleteRecord)
	s.handle(mux, "GET /api/references/{list}", s.handleReferences)

	s.handle(mux, "GET /api/stats", s.handleStats)
	s.handle(mux, "GET /api/dashboard", s.handleDashboard)
	s.handle(mux, "GET /api/recap", s.handleRecap)
	s.handle(mux, "GET /api/exports/{kind}", s.handleExport)
	s.handle(mux, "POST /api/exports/jobs", s.handleEnqueueExport)

	isWrite := func(r *http.Request) bool { return r.Method != http.MethodGet && r.Method != http.MethodHead }
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded", log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
	}

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, isWrite, onLimit)(h)
	h = s.withClientInfo(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = log.Middleware(s.logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// handle registers h under pattern, counting responses per route.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		h(rw, r)
		s.metrics.HTTPRequest(r.Method, pattern, rw.statusCode)
	}))
}

// withClientInfo adds the client address to the request logger and flags
// scanner probes.
func (s *Server) withClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := s.detector.ExtractClientIP(r)
		logger := log.FromContext(r.Context()).With(log.FieldClientIP, clientIP)
		if s.detector.DetectSuspiciousRequest(r) {
			logger.WarnContext(r.Context(), "Suspicious request",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				"user_agent", r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r.WithContext(log.NewContext(r.Context(), logger)))
	})
}

// Shutdown stops the HTTP server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks that the record backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if _, err := s.reports.Snapshot(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
