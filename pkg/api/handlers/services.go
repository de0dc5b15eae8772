package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/gryfd/pkg/api/types"
	"github.com/urmzd/gryfd/pkg/integration"
)

// ServiceRunner runs the bus services of a set up entry.
type ServiceRunner interface {
	Reset(ctx context.Context, entryID string) error
	SearchModules(ctx context.Context, entryID string) error
	GryfExpert(ctx context.Context, entryID, action string) error
}

// ServicesHandler handles the bus service endpoints
type ServicesHandler struct {
	services ServiceRunner
}

// NewServicesHandler creates a new services handler
func NewServicesHandler(services ServiceRunner) *ServicesHandler {
	return &ServicesHandler{services: services}
}

// bindService reads an optional ServiceRequest body. An empty body targets
// the YAML bus.
func bindService(c *gin.Context) (string, bool) {
	var req types.ServiceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body")
			return "", false
		}
	}
	if req.EntryID == "" {
		req.EntryID = integration.YAMLEntryID
	}
	return req.EntryID, true
}

// Reset handles POST /services/reset
// @Summary      Reset modules
// @Description  Resets every module on the entry's bus
// @Tags         services
// @Accept       json
// @Produce      json
// @Param        request  body      types.ServiceRequest  false  "Target entry (default: the YAML bus)"
// @Success      200      {object}  types.ServiceResponse
// @Failure      404      {object}  types.ErrorResponse  "Entry not set up"
// @Failure      503      {object}  types.ErrorResponse  "Bus disconnected"
// @Router       /services/reset [post]
func (h *ServicesHandler) Reset(c *gin.Context) {
	entryID, ok := bindService(c)
	if !ok {
		return
	}
	if err := h.services.Reset(c.Request.Context(), entryID); err != nil {
		respondError(c, err, "bus_error")
		return
	}
	c.JSON(http.StatusOK, types.ServiceResponse{Service: "reset", EntryID: entryID, Status: "done"})
}

// SearchModules handles POST /services/search_modules
// @Summary      Search modules
// @Description  Asks every configured module to identify itself. Answers appear in the health bus status
// @Tags         services
// @Accept       json
// @Produce      json
// @Param        request  body      types.ServiceRequest  false  "Target entry (default: the YAML bus)"
// @Success      200      {object}  types.ServiceResponse
// @Failure      404      {object}  types.ErrorResponse  "Entry not set up"
// @Failure      503      {object}  types.ErrorResponse  "Bus disconnected"
// @Router       /services/search_modules [post]
func (h *ServicesHandler) SearchModules(c *gin.Context) {
	entryID, ok := bindService(c)
	if !ok {
		return
	}
	if err := h.services.SearchModules(c.Request.Context(), entryID); err != nil {
		respondError(c, err, "bus_error")
		return
	}
	c.JSON(http.StatusOK, types.ServiceResponse{Service: "search_modules", EntryID: entryID, Status: "done"})
}

// GryfExpert handles POST /services/gryf_expert
// @Summary      Toggle the expert server
// @Description  Starts or stops the TCP server that mirrors raw bus traffic for the Gryf Expert tool
// @Tags         services
// @Accept       json
// @Produce      json
// @Param        request  body      types.GryfExpertRequest  true  "Target entry and action"
// @Success      200      {object}  types.ServiceResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid request"
// @Failure      404      {object}  types.ErrorResponse  "Entry not set up"
// @Router       /services/gryf_expert [post]
func (h *ServicesHandler) GryfExpert(c *gin.Context) {
	var req types.GryfExpertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "action must be turn_on or turn_off")
		return
	}
	if req.EntryID == "" {
		req.EntryID = integration.YAMLEntryID
	}

	if err := h.services.GryfExpert(c.Request.Context(), req.EntryID, req.Action); err != nil {
		respondError(c, err, "expert_error")
		return
	}
	log.Info().Str("entry", req.EntryID).Str("action", req.Action).Msg("Gryf expert toggled")
	c.JSON(http.StatusOK, types.ServiceResponse{Service: "gryf_expert", EntryID: req.EntryID, Status: req.Action})
}
