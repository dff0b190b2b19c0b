package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"jobs-viewer/config"
	"jobs-viewer/internal/backend"
	"jobs-viewer/internal/handlers"
	"jobs-viewer/internal/middleware"
	"jobs-viewer/internal/render"
	"jobs-viewer/internal/viewstate"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	version     = "1.0.0"
	serviceName = "jobs-viewer"
)

// Server represents the HTTP server
type Server struct {
	Router   *gin.Engine
	config   *config.Config
	logger   *zap.Logger
	backend  *backend.Client
	sessions *viewstate.Sessions

	viewerHandler *handlers.ViewerHandler
}

// New creates a new server instance
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	client, err := backend.NewClient(cfg.Backend, logger)
	if err != nil {
		return nil, err
	}

	renderer, err := render.New()
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(renderer.Templates())

	sessions := viewstate.NewSessions(cfg.Session.TTL, client, logger)

	server := &Server{
		Router:        router,
		config:        cfg,
		logger:        logger,
		backend:       client,
		sessions:      sessions,
		viewerHandler: handlers.NewViewerHandler(sessions, renderer, cfg.Session, logger),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.Router.Use(middleware.RequestIDMiddleware())
	s.Router.Use(middleware.RecoveryMiddleware(s.logger))
	s.Router.Use(middleware.SecurityHeadersMiddleware())

	s.Router.Use(middleware.CORSMiddleware(
		s.config.CORS.Origins,
		s.config.CORS.Credentials,
	))

	rateLimiter := middleware.NewRateLimit(
		s.config.RateLimit.Requests,
		time.Duration(s.config.RateLimit.Window)*time.Second,
	)
	s.Router.Use(middleware.RateLimitMiddleware(rateLimiter, s.logger))

	if s.config.IsDevelopment() {
		s.Router.Use(middleware.DetailedLoggingMiddleware(s.logger, true, false))
	} else {
		s.Router.Use(middleware.LoggingMiddleware(s.logger))
	}
}

// setupRoutes configures the viewer routes
func (s *Server) setupRoutes() {
	s.Router.GET("/health", s.healthCheck)
	s.Router.HEAD("/health", s.healthCheck)
	s.Router.GET("/ready", s.readinessCheck)
	s.Router.HEAD("/ready", s.readinessCheck)

	if s.config.Metrics.Enabled {
		s.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	s.Router.StaticFS("/static", http.FS(render.Static()))

	s.Router.GET("/", s.viewerHandler.Index)
	s.Router.GET("/view", s.viewerHandler.View)
	s.Router.GET("/views/panes", s.viewerHandler.Panes)

	events := s.Router.Group("/events")
	{
		events.POST("/date", s.viewerHandler.ChangeDate)
		events.POST("/internships", s.viewerHandler.ToggleInternships)
		events.POST("/select", s.viewerHandler.SelectJob)
		events.POST("/filters", s.viewerHandler.ChangeFilters)
	}
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version,
		"service":   serviceName,
	})
}

// readinessCheck reports ready only while the listings API answers.
func (s *Server) readinessCheck(c *gin.Context) {
	if err := s.checkBackendHealth(c.Request.Context()); err != nil {
		s.logger.Error("Backend health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not ready",
			"timestamp": time.Now().UTC(),
			"error":     "Listings API unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"version":   version,
		"service":   serviceName,
		"checks": gin.H{
			"backend":  "healthy",
			"sessions": s.sessions.Count(),
		},
	})
}

func (s *Server) checkBackendHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Backend.Timeout)
	defer cancel()

	if err := s.backend.Ping(ctx); err != nil {
		return fmt.Errorf("listings API: %w", err)
	}
	return nil
}
