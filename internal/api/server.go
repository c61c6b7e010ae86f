// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api provides the HTTP API server for the pantry service.
// It exposes the per-session ingredient list, voice capture, recipe navigation,
// the prompt proxy and operational endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minhageladeira/geladeira/internal/config"
	"github.com/minhageladeira/geladeira/internal/identity"
	"github.com/minhageladeira/geladeira/internal/llm"
	"github.com/minhageladeira/geladeira/internal/logging"
	"github.com/minhageladeira/geladeira/internal/metrics"
	"github.com/minhageladeira/geladeira/internal/pantry"
	"github.com/minhageladeira/geladeira/internal/store"
	"github.com/minhageladeira/geladeira/internal/util"
	log "github.com/sirupsen/logrus"
)

// ServerOption customises optional collaborators of the Server.
type ServerOption func(*Server)

// WithStateBox enables the status endpoint details for sb.
func WithStateBox(sb *util.StateBox) ServerOption {
	return func(s *Server) { s.stateBox = sb }
}

// WithStore reports the active backend in the status endpoint.
func WithStore(st store.IngredientStore) ServerOption {
	return func(s *Server) { s.store = st }
}

// WithLLM enables the prompt proxy and recipe suggestions.
func WithLLM(c *llm.Client) ServerOption {
	return func(s *Server) { s.llm = c }
}

// WithResolver sets the bearer token resolver. Without one every caller is anonymous.
func WithResolver(r identity.Resolver) ServerOption {
	return func(s *Server) { s.resolver = r }
}

// WithMetrics records request metrics and serves /metrics.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithVoiceAvailable reports whether sessions get a speech recognizer.
func WithVoiceAvailable(available bool) ServerOption {
	return func(s *Server) { s.voiceAvailable = available }
}

// Server wires the gin engine to the pantry manager and its collaborators.
type Server struct {
	engine *gin.Engine
	server *http.Server

	manager        *pantry.Manager
	stateBox       *util.StateBox
	store          store.IngredientStore
	llm            *llm.Client
	resolver       identity.Resolver
	metrics        *metrics.Metrics
	voiceAvailable bool

	cfgMu sync.RWMutex
	cfg   *config.Config
}

// NewServer creates the API server. cfg and manager are required.
func NewServer(cfg *config.Config, manager *pantry.Manager, opts ...ServerOption) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		manager: manager,
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(logging.GinLogrusLogger(), gin.Recovery())
	s.engine = engine
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	s.engine.GET("/api/status", s.statusHandler)
	s.engine.POST("/api/llm", s.llmProxyHandler)

	pantryGroup := s.engine.Group("/api/pantry")
	pantryGroup.Use(IdentityMiddleware(s.resolver))
	{
		pantryGroup.GET("", s.getPantry)
		pantryGroup.POST("/ingredients", s.addIngredient)
		pantryGroup.DELETE("/ingredients/:name", s.removeIngredient)
		pantryGroup.DELETE("/ingredients", s.clearIngredients)
		pantryGroup.POST("/voice", s.startVoice)
		pantryGroup.DELETE("/voice", s.stopVoice)
		pantryGroup.GET("/recipes-url", s.recipesURL)
		pantryGroup.POST("/recipes", s.suggestRecipes)
		pantryGroup.GET("/ws", s.pantryFeed)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves until Stop is called.
func (s *Server) Start() error {
	log.Infof("API server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	log.Debug("Stopping API server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	log.Debug("API server stopped")
	return nil
}

// UpdateConfig applies reloadable settings (navigation path, status exposure, log level).
func (s *Server) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
	util.SetLogLevel(cfg.Debug)
}

func (s *Server) config() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}
