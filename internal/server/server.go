package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/nao1215/patternscan/internal/metrics"
	"github.com/nao1215/patternscan/internal/model"
)

const (
	// maxRequestBodyBytes caps the analyze request body.
	maxRequestBodyBytes = 16 * 1024

	// shutdownTimeout bounds graceful shutdown once the context ends.
	shutdownTimeout = 10 * time.Second

	// readHeaderTimeout guards against slow header attacks.
	readHeaderTimeout = 10 * time.Second
)

// Auditor scrapes and analyzes a URL. *audit.Service satisfies it.
type Auditor interface {
	Audit(ctx context.Context, target string) (*model.PageSnapshot, model.AnalysisResult, error)
}

// Server serves the audit HTTP API.
type Server struct {
	auditor   Auditor
	validator *URLValidator
	limiter   *clientLimiter
	cache     *expirable.LRU[string, auditOutcome]
	inflight  singleflight.Group
	metrics   *metrics.Metrics
	logger    *slog.Logger
	router    chi.Router
	version   string

	resolver     Resolver
	maxURLLength int
	perMinute    int
	burst        int
	cacheSize    int
	cacheTTL     time.Duration
	trustProxy   bool
	now          func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records rate limiting and cache hits and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRateLimit allows perMinute analyze requests per client with the
// given burst. A non-positive perMinute disables rate limiting.
func WithRateLimit(perMinute, burst int) Option {
	return func(s *Server) {
		s.perMinute = perMinute
		s.burst = burst
	}
}

// WithCache keeps successful analyses for ttl, up to size entries.
// A zero ttl disables the cache.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *Server) {
		s.cacheSize = size
		s.cacheTTL = ttl
	}
}

// WithMaxURLLength sets the URL length cap.
func WithMaxURLLength(n int) Option {
	return func(s *Server) {
		s.maxURLLength = n
	}
}

// WithResolver replaces the DNS resolver used for private address checks.
func WithResolver(r Resolver) Option {
	return func(s *Server) {
		s.resolver = r
	}
}

// WithTrustProxy takes the client address from X-Forwarded-For or
// X-Real-IP. Enable only behind a proxy that sets these headers.
func WithTrustProxy(trust bool) Option {
	return func(s *Server) {
		s.trustProxy = trust
	}
}

// WithVersion sets the version reported by /healthz.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// New creates a Server around auditor.
func New(auditor Auditor, opts ...Option) *Server {
	s := &Server{
		auditor:      auditor,
		logger:       slog.Default(),
		resolver:     net.DefaultResolver,
		maxURLLength: 2048,
		perMinute:    10,
		burst:        3,
		cacheSize:    128,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.validator = NewURLValidator(s.resolver, s.maxURLLength)
	s.limiter = newClientLimiter(s.perMinute, s.burst)
	if s.cacheTTL > 0 && s.cacheSize > 0 {
		s.cache = expirable.NewLRU[string, auditOutcome](s.cacheSize, nil, s.cacheTTL)
	}
	s.router = s.routes()
	return s
}

// routes builds the chi router.
func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Post("/api/analyze", s.handleAnalyze)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestLogger logs each request at debug level, or warn for 5xx.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
