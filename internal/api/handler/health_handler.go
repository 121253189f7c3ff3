package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 3 * time.Second

// Health handles GET /health
// Reports the service and whether the generation backend answers
func (h *HealthHandler) Health(c *gin.Context) {
	if h.backend == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": h.serviceName,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.backend.Health(ctx); err != nil {
		h.logger.Warn("Generation backend unhealthy", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "degraded",
			"service": h.serviceName,
			"backend": "unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.serviceName,
		"backend": "healthy",
	})
}
