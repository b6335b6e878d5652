package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/schedkit/internal/batch"
	"github.com/me/schedkit/internal/catalog"
	"github.com/me/schedkit/internal/config"
	"github.com/me/schedkit/internal/parser"
	"github.com/me/schedkit/internal/store"
)

// maxBodyBytes caps request bodies on the compute endpoints.
const maxBodyBytes = 1 << 20

// Server is the schedkit REST API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	catalog   *catalog.Catalog
	validator *parser.Validator
	store     store.Store // optional; nil disables the result cache and history
	limiter   *batch.Slots
	keys      *APIKeyConfig
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithStore sets the result store used for caching and history.
func WithStore(st store.Store) Option {
	return func(s *Server) {
		s.store = st
	}
}

// WithAPIKeys requires one of the configured keys on the compute endpoints.
func WithAPIKeys(keys *APIKeyConfig) Option {
	return func(s *Server) {
		s.keys = keys
	}
}

// New creates a new Server with all routes registered.
func New(cfg config.ServerConfig, cat *catalog.Catalog, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		catalog:   cat,
		validator: parser.NewValidator(logger),
		limiter:   batch.NewSlots(cfg.MaxConcurrent),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	healthLevel, err := s.config.Logging().Health()
	if err != nil {
		healthLevel = slog.LevelDebug
	}
	r.Use(loggingMiddleware(s.logger, healthLevel))

	r.Route("/api/v1", func(r chi.Router) {
		// Discovery
		r.Get("/", s.handleDiscovery)

		// Health
		r.Get("/health", s.handleHealth)

		// Catalogue
		r.Route("/algorithms", func(r chi.Router) {
			r.Get("/", s.handleListAlgorithms)
			r.Get("/{name}", s.handleGetAlgorithm)
		})
		r.Get("/families", s.handleListFamilies)

		// Compute
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequestSize(maxBodyBytes))
			r.Use(apiKeyMiddleware(s.keys, s.logger))
			r.Post("/analyze", s.handleAnalyze)
			r.Post("/design", s.handleDesign)
		})

		// History
		r.Route("/results", func(r chi.Router) {
			r.Get("/", s.handleListResults)
			r.Get("/{id}", s.handleGetResult)
		})
	})
}
