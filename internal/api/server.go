// Package api serves the expense REST API backed by SQLite.
package api

import (
	"context"
	"net/http"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Repository is the expense storage used by the API.
type Repository interface {
	List(ctx context.Context) ([]core.Expense, error)
	Get(ctx context.Context, id string) (core.Expense, error)
	Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	Update(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// Publisher receives change events. A nil Publisher disables events.
type Publisher interface {
	PublishExpenseEvent(ctx context.Context, evt *amqp.ExpenseEvent) error
}

type Server struct {
	http.Server
	repo      Repository
	publisher Publisher
	limiter   *ratelimit.Limiter
	logger    *applog.Logger
	now       func() time.Time
}

// Options tune a Server.
type Options struct {
	RateLimitPerMinute int
	Logger             *applog.Logger
}

// NewServer wires routes and middleware for the expense API on addr.
func NewServer(addr string, repo Repository, publisher Publisher, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	s := &Server{
		repo:      repo,
		publisher: publisher,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		logger:    logger.WithComponent(applog.ComponentAPI),
		now:       time.Now,
	}
	s.Addr = addr
	s.Handler = s.routes()
	s.ReadHeaderTimeout = 10 * time.Second
	s.ReadTimeout = 15 * time.Second
	s.WriteTimeout = 15 * time.Second
	s.IdleTimeout = 60 * time.Second
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(applog.Middleware(s.logger, applog.ComponentAPI))
	r.Use(trace.NewMiddleware(trace.ClientIP).Handler)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	s.mountExpenses(r)
	// Same surface under /api for clients configured against the proxy path.
	r.Route("/api", s.mountExpenses)
	return r
}

func (s *Server) mountExpenses(r chi.Router) {
	limited := s.limiter.Middleware(trace.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	})

	r.Get("/expenses", s.handleList)
	r.With(limited).Post("/expenses", s.handleCreate)
	r.Get("/expenses/{id}", s.handleGet)
	r.Put("/expenses/{id}", s.handleUpdate)
	r.Delete("/expenses/{id}", s.handleDelete)

	r.With(limited).Post("/aiml/predict", s.handlePredict)
	r.Get("/aiml/compare", s.handleCompare)
}

// Shutdown stops the listener and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.repo.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
