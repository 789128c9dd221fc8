package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"compras/internal/core"
	applog "compras/internal/log"
	"compras/internal/middleware/ratelimit"
	"compras/internal/middleware/security"
	"compras/internal/middleware/trace"
)

// Dashboard is the read side the API serves.
type Dashboard interface {
	Years() []int
	Source() string
	Series(ctx context.Context, year int) (core.CanonicalSeries, error)
	Summary(ctx context.Context, year int, entity core.Entity, rng core.PeriodRange) (core.SummaryView, error)
}

// FetchLog is the audit trail of fetch attempts. It is optional.
type FetchLog interface {
	ListFetches(ctx context.Context, year int, limit int) ([]core.FetchOutcome, error)
	Ping(ctx context.Context) error
}

// Config holds the HTTP server settings.
type Config struct {
	Addr        string
	DefaultYear int

	// RequestTimeout bounds the work done for one API request, fetch
	// included. Zero leaves requests unbounded.
	RequestTimeout time.Duration

	RateLimitPerMinute int
	AllowedOrigin      string
}

type appMetrics struct {
	uptime           time.Time
	summariesServed  int64
	seriesServed     int64
	unavailableTotal int64
}

type Server struct {
	http.Server

	dashboard   Dashboard
	fetchLog    FetchLog
	defaultYear int
	timeout     time.Duration

	logger     *applog.Logger
	structured *applog.StructuredLogger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. fetchLog may be nil.
func NewServer(cfg Config, dashboard Dashboard, fetchLog FetchLog, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector()
	structured := applog.NewStructuredLogger(logger)

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16, // 64KB
		},
		dashboard:        dashboard,
		fetchLog:         fetchLog,
		defaultYear:      cfg.DefaultYear,
		timeout:          cfg.RequestTimeout,
		logger:           logger,
		structured:       structured,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP).WithLogger(structured),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.WriteTimeout = 30 * time.Second
	if cfg.RequestTimeout > 0 {
		s.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/options", s.handleOptions)
	mux.HandleFunc("GET /api/series", s.handleSeries)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/fetches", s.handleFetches)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	headers := security.DefaultHeadersConfig()
	headers.AllowedOrigin = cfg.AllowedOrigin

	var h http.Handler = mux
	h = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = applog.Middleware(logger)(h)
	h = s.rateLimiter.Middleware(detector.ExtractClientIP, s.handleRateLimited)(h)
	h = security.NoStoreMiddleware(h)
	h = security.NewHeadersMiddleware(headers).Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	h = detector.Middleware(h)
	s.Handler = h

	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{
		Status: "rate_limited",
		Error:  "rate limit exceeded, please try again later",
	})
}

// requestContext applies the per-request time budget.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.timeout)
}

func (m *appMetrics) served(series bool) {
	if series {
		atomic.AddInt64(&m.seriesServed, 1)
		return
	}
	atomic.AddInt64(&m.summariesServed, 1)
}
