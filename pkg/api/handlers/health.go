package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/gryfd/pkg/api/types"
	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/integration"
)

// StatusProvider reports the state of every set up bus
type StatusProvider interface {
	Status() []integration.BusStatus
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	controller device.Controller
	status     StatusProvider
}

// NewHealthHandler creates a new health handler. status may be nil.
func NewHealthHandler(controller device.Controller, status StatusProvider) *HealthHandler {
	return &HealthHandler{controller: controller, status: status}
}

// Health handles GET /health
// @Summary      Health check
// @Description  Returns the health status of the API and every Gryf bus
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Service is healthy"
// @Failure      503  {object}  types.HealthResponse  "Service is degraded"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	busStatus := "disconnected"
	if h.controller.IsConnected() {
		busStatus = "connected"
	}

	status := "healthy"
	httpStatus := http.StatusOK

	if busStatus != "connected" {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	buses := []integration.BusStatus{}
	if h.status != nil {
		buses = h.status.Status()
	}

	c.JSON(httpStatus, types.HealthResponse{
		Status:    status,
		Bus:       busStatus,
		Buses:     buses,
		Timestamp: time.Now(),
	})
}
