// internal/interfaces/http/server.go
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/coating-shop/internal/config"
	redisdb "github.com/your-org/coating-shop/internal/infrastructure/database/redis"
	"github.com/your-org/coating-shop/internal/interfaces/http/middleware"
	"github.com/your-org/coating-shop/internal/interfaces/http/routes"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	config      *config.Config
	log         *logrus.Logger
	gin         *gin.Engine
	httpServer  *http.Server
	services    routes.Services
	redisClient *redisdb.Client
	checks      map[string]HealthChecker
	startedAt   time.Time
}

// NewServer creates a new HTTP server instance. redisClient may be nil when
// Redis is disabled.
func NewServer(cfg *config.Config, log *logrus.Logger, services routes.Services, redisClient *redisdb.Client, checks map[string]HealthChecker) *Server {
	s := &Server{
		config:      cfg,
		log:         log,
		services:    services,
		redisClient: redisClient,
		checks:      checks,
		startedAt:   time.Now(),
	}
	s.setup()
	return s
}

// Handler returns the configured router
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.gin,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.log.Infof("🚀 HTTP Server starting on port %s", s.config.Server.Port)
	s.log.Infof("🌐 API Base URL: http://localhost:%s/api/v1", s.config.Server.Port)
	s.log.Infof("📊 Health Check: http://localhost:%s/health", s.config.Server.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info("🛑 Shutting down HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.log.Info("✅ HTTP server stopped gracefully")
	return nil
}

func (s *Server) setup() {
	if s.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.gin = gin.New()
	if err := s.gin.SetTrustedProxies(s.config.Security.TrustedProxies); err != nil {
		s.log.WithError(err).Warn("invalid trusted proxies, trusting none")
		_ = s.gin.SetTrustedProxies(nil)
	}

	s.setupMiddleware()
	s.setupRoutes()
}

// setupMiddleware configures all middleware for the server
func (s *Server) setupMiddleware() {
	// Recovery middleware - recover from panics
	s.gin.Use(gin.Recovery())

	s.gin.Use(middleware.RequestID())
	s.gin.Use(middleware.Tracing(s.config.Telemetry.ServiceName))
	s.gin.Use(middleware.Logger(s.log))
	s.gin.Use(middleware.CORS(s.config))
	s.gin.Use(middleware.SecurityHeaders(s.config.IsProduction()))

	if s.redisClient != nil {
		s.gin.Use(middleware.RateLimit(s.config, s.redisClient, s.log))
	}

	s.gin.Use(middleware.RequestSizeLimit(s.config.Security.MaxBodyBytes))
	s.gin.Use(middleware.Timeout(s.config.Security.RequestTimeout))
}

// setupRoutes configures all routes for the server
func (s *Server) setupRoutes() {
	// Health check endpoints (no auth required)
	s.gin.GET("/health", s.healthCheck)
	s.gin.GET("/ready", s.readinessCheck)

	apiV1 := s.gin.Group("/api/v1")
	routes.SetupRoutes(apiV1, s.services, s.config, s.log)

	if s.config.IsDevelopment() {
		s.gin.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"message":     s.config.App.Name,
				"version":     s.config.App.Version,
				"environment": s.config.App.Environment,
				"health":      "/health",
				"endpoints": gin.H{
					"orders":     "/api/v1/orders",
					"production": "/api/v1/production",
					"inventory":  "/api/v1/inventory",
				},
			})
		})
	}
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	for name, check := range s.checks {
		if err := check.Health(ctx); err != nil {
			s.log.WithError(err).WithField("dependency", name).Warn("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  name + " ping failed",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"version":     s.config.App.Version,
		"environment": s.config.App.Environment,
	})
}

// readinessCheck handles readiness check requests
func (s *Server) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}
