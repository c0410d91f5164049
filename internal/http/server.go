// Package http serves the dashboard JSON API over a session.
package http

import (
	"context"
	"net/http"
	"time"

	"finboard/internal/analytics"
	"finboard/internal/cache"
	applog "finboard/internal/log"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
	"finboard/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	defaultCacheSize = 64
	defaultCacheTTL  = 30 * time.Second
)

type Server struct {
	http.Server
	sess       *session.Session
	dashboards *cache.LRUCache[analytics.Dashboard]
	caches     *cache.Manager
	limiter    *ratelimit.Limiter
	ready      func(context.Context) error
	logger     *applog.Logger
	now        func() time.Time
}

// Options tune a Server. Zero values pick defaults.
type Options struct {
	RateLimitPerMinute int
	CacheSize          int
	CacheTTL           time.Duration
	// Ready backs /readyz, typically a state store ping.
	Ready  func(context.Context) error
	Logger *applog.Logger
}

func NewServer(addr string, sess *session.Session, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}

	s := &Server{
		sess:       sess,
		dashboards: cache.NewLRUCache[analytics.Dashboard](opts.CacheSize, opts.CacheTTL),
		caches:     cache.NewManager(),
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		ready:      opts.Ready,
		logger:     logger.WithComponent(applog.ComponentHTTP),
		now:        time.Now,
	}
	s.caches.Register("dashboard", s.dashboards)
	s.caches.StartCleanup(opts.CacheTTL)

	s.Addr = addr
	s.Handler = s.routes()
	s.ReadHeaderTimeout = 10 * time.Second
	s.ReadTimeout = 30 * time.Second
	s.WriteTimeout = 30 * time.Second
	s.IdleTimeout = 60 * time.Second
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(applog.Middleware(s.logger, applog.ComponentHTTP))
	r.Use(trace.NewMiddleware(trace.ClientIP).Handler)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	limited := s.limiter.Middleware(trace.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	})

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Get("/dashboard", s.handleDashboard)
	r.Get("/gamification", s.handleGamification)
	r.Get("/error", s.handleError)

	r.Get("/expenses", s.handleListExpenses)
	r.With(limited).Post("/expenses", s.handleCreateExpense)
	r.Put("/expenses/{id}", s.handleUpdateExpense)
	r.With(limited).Post("/receipts", s.handleReceipt)

	r.Get("/income", s.handleListIncome)
	r.With(limited).Post("/income", s.handleAddIncome)

	r.Route("/emergency", func(r chi.Router) {
		r.Get("/", s.handleEmergency)
		r.Put("/target", s.handleSetTarget)
		r.With(limited).Post("/contributions", s.handleContribute)
		r.With(limited).Post("/withdrawals", s.handleWithdraw)
	})
	return r
}

// Shutdown stops the listener, the rate limiter and the cache sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	s.caches.Stop()
	return s.Server.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "state store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
