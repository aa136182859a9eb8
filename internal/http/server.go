// Package http exposes the tracker as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"expense-tracker/internal/log"
	"expense-tracker/internal/middleware/ratelimit"
	"expense-tracker/internal/middleware/security"
	"expense-tracker/internal/services"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Services bundles the application services the handlers call.
type Services struct {
	Transactions *services.TransactionService
	Metrics      *services.MetricsService
	Limits       *services.LimitsService
	Summary      *services.SummaryService
}

type Config struct {
	Addr              string
	JWTSecret         string
	RequestsPerMinute int
	// Ready reports whether dependencies are reachable. Nil means always
	// ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	svc     Services
	auth    *Authenticator
	limiter *ratelimit.Limiter
	logger  *log.Logger
	ready   func(ctx context.Context) error
}

func NewServer(cfg Config, svc Services, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	s := &Server{
		svc:     svc,
		auth:    NewAuthenticator(cfg.JWTSecret),
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RequestsPerMinute}),
		logger:  logger.WithComponent(log.ComponentHTTP),
		ready:   cfg.Ready,
	}
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string { return chimw.GetReqID(r.Context()) }))
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(extractClientIP, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
		}))
		r.Use(s.auth.Middleware)

		r.Get("/categories", s.handleCategories)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Get("/{id}", s.handleGetTransaction)
			r.Put("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})

		r.Get("/metrics", s.handleMetrics)

		r.Get("/limits", s.handleGetLimits)
		r.Put("/limits", s.handleUpdateLimits)
		r.Get("/limits/exceeded", s.handleExceededLimits)

		r.Get("/summary", s.handleSummaryStatus)
		r.Post("/summary", s.handleRequestSummary)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
	return r
}

// requestLogger logs each request's outcome with its status and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	sl := log.NewStructuredLogger(s.logger)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		sl.LogHTTPStart(r.Context(), r, clientIP)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		sl.LogHTTPEnd(r.Context(), r, status, time.Since(start), clientIP)
	})
}

// Shutdown stops the rate limiter and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
