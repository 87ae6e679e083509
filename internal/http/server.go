package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

// CategoryStore lists categories and toggles favorites.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	SetFavorite(ctx context.Context, name string, favorite bool) error
}

// Deps are the services behind the API. Ready and Now are optional.
type Deps struct {
	Expenses   *services.ExpenseService
	Reports    *services.AnalyticsService
	Budget     *services.BudgetService
	Goals      *services.GoalService
	Categories CategoryStore

	// Ready reports whether backing stores are reachable.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
	Now    func() time.Time
}

// Server is the JSON API server.
type Server struct {
	http.Server

	deps        Deps
	now         func() time.Time
	started     time.Time
	rateLimiter *rateLimiter
	security    securityMetrics
}

// Mutating requests per client and minute.
const writeRateLimit = 60

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		deps:        deps,
		now:         now,
		started:     time.Now(),
		rateLimiter: newRateLimiter(writeRateLimit, time.Minute),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go s.rateLimiter.startCleanup()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(log.Middleware(s.deps.Logger, requestIDFrom))
	r.Use(middleware.Recoverer)
	r.Use(s.withSecurity)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/analytics", s.handleAnalytics)
		r.Get("/analytics/export.xlsx", s.handleAnalyticsExport)

		r.Get("/expenses", s.handleListExpenses)
		r.Post("/expenses", s.handleCreateExpense)
		r.Get("/expenses/{id}", s.handleGetExpense)
		r.Put("/expenses/{id}", s.handleUpdateExpense)
		r.Delete("/expenses/{id}", s.handleDeleteExpense)

		r.Get("/categories", s.handleListCategories)
		r.Put("/categories/{name}/favorite", s.handleSetFavorite)

		r.Get("/limits/daily", s.handleDailyStatus)
		r.Put("/limits/daily", s.handleSetDailyLimit)

		r.Get("/goals", s.handleListGoals)
		r.Post("/goals", s.handleCreateGoal)
		r.Put("/goals/{id}", s.handleUpdateGoal)
		r.Delete("/goals/{id}", s.handleDeleteGoal)
		r.Post("/goals/{id}/archive", s.handleArchiveGoal)
		r.Post("/goals/{id}/savings", s.handleAddSavings)
	})
	return r
}

// Shutdown stops background work and drains open connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.stop()
	return s.Server.Shutdown(ctx)
}

type requestIDKey struct{}

// withRequestID reuses a sane X-Request-ID from the client or generates one,
// and echoes it on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 64 || sanitizeInput(id) != id {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

// withSecurity sets security headers, logs suspicious requests and rate limits writes.
func (s *Server) withSecurity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		logger := log.FromContext(r.Context())

		if reason, ok := detectSuspiciousRequest(r, &s.security); ok {
			logger.WarnContext(r.Context(), "Suspicious request",
				log.FieldClientIP, clientIP,
				"reason", reason,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
		}

		if r.Method != http.MethodGet && r.Method != http.MethodHead &&
			!s.rateLimiter.allow(clientIP, &s.security) {
			logger.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded", requestIDFrom(r)).Write(w)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logger(r *http.Request, component string) *slog.Logger {
	return log.FromContext(r.Context()).WithComponent(component).Slog()
}
