// Package web provides the HTTP server and handlers for merging chat exports.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/chatmerge/internal/config"
	"github.com/JonMunkholm/chatmerge/internal/core"
	"github.com/JonMunkholm/chatmerge/internal/logging"
	"github.com/JonMunkholm/chatmerge/internal/sink"
	mw "github.com/JonMunkholm/chatmerge/internal/web/middleware"
)

// formSlots is the number of file/channel rows on the dashboard form.
const formSlots = 6

// ExportStore lists and loads saved exports. *sink.Postgres satisfies it.
type ExportStore interface {
	List(ctx context.Context, limit int) ([]sink.StoredExport, error)
	Get(ctx context.Context, id string) (sink.StoredExport, error)
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Pipeline *core.Pipeline
	Limiter  *core.Limiter
	Sinks    *sink.Registry
	Exports  ExportStore // nil when no database is configured
}

// Server is the HTTP server for chatmerge.
type Server struct {
	cfg      *config.Config
	pipeline *core.Pipeline
	limiter  *core.Limiter
	sinks    *sink.Registry
	exports  ExportStore

	router   *chi.Mux
	server   *http.Server
	limiters []*rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: deps.Pipeline,
		limiter:  deps.Limiter,
		sinks:    deps.Sinks,
		exports:  deps.Exports,
		router:   chi.NewRouter(),
	}
	if s.limiter == nil {
		s.limiter = core.NewLimiter(cfg.Merge.MaxConcurrent, cfg.Merge.MaxWaitTime)
	}
	if s.sinks == nil {
		s.sinks = sink.NewRegistry()
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// merge endpoints share a tighter per-IP budget
	mergeLimit := func(next http.Handler) http.Handler { return next }
	if s.cfg.Rate.Enabled {
		mergeLimit = s.newRateLimiter(s.cfg.Rate.MergeLimit).middleware
	}

	// Pages
	s.router.Get("/", s.handleDashboard)
	s.router.Get("/healthz", s.handleHealth)
	s.router.With(mergeLimit).Post("/preview", s.handlePreview)
	s.router.With(mergeLimit).Post("/download", s.handleDownload)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))

		r.Group(func(r chi.Router) {
			r.Use(mergeLimit)
			r.Post("/merge", s.handleMerge)
			r.Post("/export", s.handleExport)
			r.Post("/upload", s.handleUpload)
			r.Post("/save", s.handleSave)
		})

		r.Get("/sinks", s.handleListSinks)
		r.Get("/exports", s.handleListExports)
		r.Get("/exports/{id}", s.handleGetExport)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	logging.FromContext(context.Background()).Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, then waits for in-flight merges.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.limiter.WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) newRateLimiter(perMinute int) *rateLimiter {
	rl := newRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// inline styles only; the UI ships no scripts
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'none'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}

			next.ServeHTTP(w, r)
		})
	}
}
