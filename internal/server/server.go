// Package server provides the HTTP API of the recruiter agent.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/recruiter-agent/internal/db"
	"github.com/jonathan/recruiter-agent/internal/delivery"
	"github.com/jonathan/recruiter-agent/internal/intake"
	"github.com/jonathan/recruiter-agent/internal/observability"
	"github.com/jonathan/recruiter-agent/internal/run"
	"github.com/jonathan/recruiter-agent/internal/server/middleware"
	"github.com/jonathan/recruiter-agent/internal/server/ratelimit"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// Pipeline executes a run to a terminal document.
type Pipeline interface {
	Execute(ctx context.Context, r *run.Run) *types.Document
}

// AuditStore reads the persisted run trail.
type AuditStore interface {
	GetRun(ctx context.Context, id string) (*db.RunRecord, error)
	ListStages(ctx context.Context, runID string) ([]db.StageRecord, error)
}

// Config holds server configuration
type Config struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	// RunDeadline is the wall-clock budget of each run.
	RunDeadline time.Duration
	Version     string
	RateLimit   *ratelimit.Config
}

// Deps are the collaborators the handlers use. Sink, Audit and Auth are optional.
type Deps struct {
	Intake   *intake.Validator
	Pipeline Pipeline
	Sink     delivery.Sink
	Audit    AuditStore
	Auth     *JWTService
	Logger   *observability.Logger
}

// Server represents the HTTP server
type Server struct {
	cfg         Config
	deps        Deps
	log         *observability.Logger
	rateLimiter *ratelimit.Limiter
	httpServer  *http.Server
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Intake == nil || deps.Pipeline == nil {
		return nil, errors.New("intake validator and pipeline are required")
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		// Long timeout for synchronous pipeline runs
		cfg.WriteTimeout = 15 * time.Minute
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = &ratelimit.Config{}
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{cfg: cfg, deps: deps, log: deps.Logger}
	if s.log == nil {
		s.log = observability.Default()
	}
	s.rateLimiter = ratelimit.NewLimiter(cfg.RateLimit)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the full middleware-wrapped router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("POST /process", s.protected(http.HandlerFunc(s.handleProcess)))
	mux.Handle("POST /process/stream", s.protected(http.HandlerFunc(s.handleProcessStream)))
	mux.Handle("GET /runs/{id}", s.protected(http.HandlerFunc(s.handleGetRun)))

	var h http.Handler = mux
	h = s.withRateLimit(h)
	h = middleware.CORS(s.cfg.AllowedOrigins)(h)
	h = middleware.Recover(h)
	h = middleware.RequestLogger(s.log)(h)
	return h
}

// protected requires a bearer token when auth is configured.
func (s *Server) protected(h http.Handler) http.Handler {
	if s.deps.Auth == nil {
		return h
	}
	return middleware.RequireBearer(s.deps.Auth)(h)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.httpServer.Addr).Info("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer s.rateLimiter.Stop()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractClientID uses the IP address from RemoteAddr.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":   "rate_limit_exceeded",
		"message": "Rate limit exceeded. Please try again later.",
		"limit":   info.Limit,
	}
	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	observability.FromContext(r.Context()).WithFields(observability.Fields{
		"limit":  info.Limit,
		"client": extractClientID(r),
	}).Warn("rate limit exceeded")

	jsonResponse(w, http.StatusTooManyRequests, response)
}

// jsonResponse writes a JSON response
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		observability.Default().WithError(err).Warn("failed to encode JSON response")
	}
}

// errorResponse writes the JSON error body for err.
func errorResponse(w http.ResponseWriter, err error) {
	jsonResponse(w, HTTPStatus(err), errorBody(err))
}
