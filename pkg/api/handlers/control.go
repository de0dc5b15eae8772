package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/gryfd/pkg/api/types"
	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/device/schema"
)

// ControlHandler handles entity state control endpoints
type ControlHandler struct {
	controller device.Controller
	validator  *schema.Validator
}

// NewControlHandler creates a new control handler
func NewControlHandler(controller device.Controller, validator *schema.Validator) *ControlHandler {
	return &ControlHandler{controller: controller, validator: validator}
}

// GetState handles GET /entities/:id/state
// @Summary      Get entity state
// @Description  Returns the last state the bus reported for an entity
// @Tags         entities
// @Produce      json
// @Param        id   path      string  true  "Entity id"
// @Success      200  {object}  types.StateResponse
// @Failure      404  {object}  types.ErrorResponse  "Entity not found"
// @Failure      500  {object}  types.ErrorResponse  "Registry error"
// @Router       /entities/{id}/state [get]
func (h *ControlHandler) GetState(c *gin.Context) {
	id := c.Param("id")

	state, err := h.controller.GetState(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "registry_error")
		return
	}

	c.JSON(http.StatusOK, types.StateResponse{
		Entity:    id,
		State:     state,
		Timestamp: time.Now(),
	})
}

// SetState handles POST /entities/:id/state
// @Summary      Set entity state
// @Description  Sends a command to an entity. The free-form JSON object is validated against the entity's state schema
// @Tags         entities
// @Accept       json
// @Produce      json
// @Param        id       path      string  true  "Entity id"
// @Param        request  body      object  true  "Command, e.g. {\"state\": \"ON\", \"brightness\": 128}"
// @Success      200      {object}  types.StateResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid request"
// @Failure      404      {object}  types.ErrorResponse  "Entity not found"
// @Failure      503      {object}  types.ErrorResponse  "Bus disconnected"
// @Failure      500      {object}  types.ErrorResponse  "Bus error"
// @Router       /entities/{id}/state [post]
func (h *ControlHandler) SetState(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	var req map[string]any
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil || req == nil {
		badRequest(c, "Invalid request body")
		return
	}

	e, err := h.controller.GetEntity(ctx, id)
	if err != nil {
		respondError(c, err, "registry_error")
		return
	}

	if err := h.validator.Validate(e.StateSchema, req); err != nil {
		respondError(c, fmt.Errorf("%w: %w", device.ErrValidation, err), "validation_error")
		return
	}

	state, err := h.controller.SetState(ctx, e.ID, req)
	if err != nil {
		respondError(c, err, "bus_error")
		return
	}

	c.JSON(http.StatusOK, types.StateResponse{
		Entity:    e.ID,
		State:     state,
		Timestamp: time.Now(),
	})
}
