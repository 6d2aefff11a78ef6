// Package server provides the HTTP API for Sumika.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/sumika/internal/analytics"
	"github.com/hyperjump/sumika/internal/catalog"
	"github.com/hyperjump/sumika/internal/config"
	"github.com/hyperjump/sumika/internal/facet"
	"github.com/hyperjump/sumika/internal/history"
	"github.com/hyperjump/sumika/internal/suggest"
	"go.uber.org/zap"
)

// Server is the HTTP server for the Sumika API.
type Server struct {
	catalog  catalog.Catalog
	suggest  *suggest.Engine
	history  *history.Store
	tracker  analytics.Tracker
	bounds   facet.Bounds
	sessions *sessionManager
	config   *config.ServerConfig
	fullCfg  *config.Config
	logger   *zap.Logger
	server   *http.Server
	baseCtx  context.Context
}

// NewServer creates a server with the given dependencies. fullCfg is
// optional; when set, /api/v1/status echoes configuration details.
func NewServer(
	cat catalog.Catalog,
	sug *suggest.Engine,
	hist *history.Store,
	tracker analytics.Tracker,
	bounds facet.Bounds,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	fullCfg *config.Config,
) *Server {
	if tracker == nil {
		tracker = analytics.NopTracker{}
	}
	return &Server{
		catalog:  cat,
		suggest:  sug,
		history:  hist,
		tracker:  tracker,
		bounds:   bounds,
		sessions: newSessionManager(defaultSessionTTL, logger),
		config:   cfg,
		fullCfg:  fullCfg,
		logger:   logger,
		baseCtx:  context.Background(),
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/suggest", s.handleSuggest)
	r.Get("/api/v1/history/recent", s.handleHistoryRecent)
	r.Get("/api/v1/history/saved", s.handleHistorySaved)
	r.Post("/api/v1/history/saved", s.handleHistorySave)
	r.Delete("/api/v1/history/recent", s.handleHistoryClearRecent)
	r.Delete("/api/v1/history/saved", s.handleHistoryClearSaved)
	r.Post("/api/v1/sessions", s.handleSessionCreate)
	r.Get("/api/v1/sessions/{id}", s.handleSessionGet)
	r.Put("/api/v1/sessions/{id}/query", s.handleSessionQuery)
	r.Delete("/api/v1/sessions/{id}", s.handleSessionDelete)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops. ctx bounds the
// lookups of every session created through the API and the session janitor.
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx = ctx
	go s.sessions.janitor(ctx)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
