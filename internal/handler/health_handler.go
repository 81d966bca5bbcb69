package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db     Pinger
	engine EngineMonitor
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger, engine EngineMonitor) *HealthHandler {
	return &HealthHandler{db: db, engine: engine}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
func (h *HealthHandler) Readiness(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database not reachable"})
		return
	}
	if !h.engine.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "generation engine not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
