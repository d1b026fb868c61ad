// Package server exposes the search engine over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/chajda/internal/config"
	"github.com/hyperjump/chajda/internal/relation"
	"github.com/hyperjump/chajda/internal/search"
	"github.com/hyperjump/chajda/internal/storage"
	"github.com/hyperjump/chajda/internal/suggest"
)

// Server hosts the HTTP API.
type Server struct {
	cfg      *config.Config
	store    storage.Store
	engine   *search.Engine
	resolver *relation.Resolver
	dict     *suggest.Dictionary
	logger   *zap.Logger
	httpSrv  *http.Server
}

// New wires the API. dict may be nil when suggestions are disabled.
func New(cfg *config.Config, store storage.Store, engine *search.Engine, resolver *relation.Resolver, dict *suggest.Dictionary, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		store:    store,
		engine:   engine,
		resolver: resolver,
		dict:     dict,
		logger:   logger,
	}
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/search", s.handleSearch)
		r.Post("/export", s.handleExport)
		r.Route("/concepts/{id}", func(r chi.Router) {
			r.Get("/", s.handleConcept)
			r.Get("/neighbors", s.handleNeighbors)
		})
	})
	return r
}

// requestLogger logs each request with latency and status.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}
