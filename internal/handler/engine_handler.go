package handler

import (
	"github.com/gin-gonic/gin"

	"invoicer/internal/engine"
)

// EngineMonitor exposes generation engine state.
type EngineMonitor interface {
	Ready() bool
	Status() engine.PoolStatus
}

// EngineHandler handles engine status endpoints.
type EngineHandler struct {
	monitor EngineMonitor
}

// NewEngineHandler creates a new EngineHandler.
func NewEngineHandler(monitor EngineMonitor) *EngineHandler {
	return &EngineHandler{monitor: monitor}
}

// Status handles GET /api/v1/engine
// @Summary Generation engine status
// @Tags engine
// @Produce json
// @Success 200 {object} Response{data=engine.PoolStatus} "Session pool state"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /engine [get]
func (h *EngineHandler) Status(c *gin.Context) {
	RespondOK(c, h.monitor.Status())
}
