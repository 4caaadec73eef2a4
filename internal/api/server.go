package api

import (
	"context"
	"net/http"
	"time"

	"example.com/arogyayaan/replenishment/config"
	"example.com/arogyayaan/replenishment/internal/api/handlers"
	"example.com/arogyayaan/replenishment/internal/api/middleware"
	"example.com/arogyayaan/replenishment/internal/metrics"
	"example.com/arogyayaan/replenishment/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server represents the HTTP server
type Server struct {
	config     config.Config
	router     *gin.Engine
	httpServer *http.Server
	transfers  handlers.TransferAPI
	checks     map[string]handlers.HealthCheck
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, transfers handlers.TransferAPI, checks map[string]handlers.HealthCheck, m *metrics.Metrics, tracer tracing.Tracer) *Server {
	server := &Server{
		config:    cfg,
		transfers: transfers,
		checks:    checks,
		metrics:   m,
		tracer:    tracer,
	}

	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	return server
}

// Router exposes the configured engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger())

	if app := s.tracer.Application(); app != nil {
		router.Use(middleware.NewRelicMiddleware(app), middleware.RequestTransaction())
	}

	v1 := router.Group("/api/v1")
	handlers.NewTransferHandler(s.transfers).RegisterRoutes(v1)
	handlers.NewHealthHandler(s.metrics, s.checks).RegisterRoutes(router)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Server.Address).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
