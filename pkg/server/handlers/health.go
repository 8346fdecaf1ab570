package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	engine Engine
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(engine Engine) *HealthHandler {
	return &HealthHandler{
		engine: engine,
	}
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// LivenessCheck handles GET /live for Kubernetes liveness probes
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// ReadinessCheck handles GET /ready. The server is ready once the engine
// exists; an empty pool is still a valid (if trivial) serving state.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if h.engine == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "engine not initialized",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"candidates": h.engine.CandidateCount(),
	})
}
