package handlers

import (
	"context"
	"net/http"
	"time"

	"example.com/arogyayaan/replenishment/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler reports dependency health
type HealthHandler struct {
	metrics *metrics.Metrics
	checks  map[string]HealthCheck
	timeout time.Duration
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(m *metrics.Metrics, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		metrics: m,
		checks:  checks,
		timeout: 2 * time.Second,
	}
}

// HandleGetHealthCheck runs every check and returns 503 if any fails
func (h *HealthHandler) HandleGetHealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	healthy := true
	details := make(map[string]bool, len(h.checks))
	for name, check := range h.checks {
		ok := true
		if err := check(ctx); err != nil {
			log.Warn().Err(err).Str("component", name).Msg("Health check failed")
			ok = false
			healthy = false
		}
		details[name] = ok
		h.metrics.SetHealth(name, ok)
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":  healthy,
		"details": details,
	})
}

// RegisterRoutes registers the handler's routes
func (h *HealthHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", h.HandleGetHealthCheck)
}
