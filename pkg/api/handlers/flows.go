package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/gryfd/pkg/configflow"
)

// FlowsHandler drives config flows
type FlowsHandler struct {
	flows *configflow.Manager
}

// NewFlowsHandler creates a new flows handler
func NewFlowsHandler(flows *configflow.Manager) *FlowsHandler {
	return &FlowsHandler{flows: flows}
}

// StartFlow handles POST /flows
// @Summary      Start a config flow
// @Description  Begins adding a Gryf bus. The first step asks for the serial port and module count
// @Tags         flows
// @Produce      json
// @Success      200  {object}  configflow.Result
// @Router       /flows [post]
func (h *FlowsHandler) StartFlow(c *gin.Context) {
	res, err := h.flows.Start(c.Request.Context())
	if err != nil {
		respondError(c, err, "flow_error")
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListFlows handles GET /flows
// @Summary      List flows in progress
// @Tags         flows
// @Produce      json
// @Success      200  {array}  configflow.Result
// @Router       /flows [get]
func (h *FlowsHandler) ListFlows(c *gin.Context) {
	c.JSON(http.StatusOK, h.flows.Progress())
}

// GetFlow handles GET /flows/:id
// @Summary      Get a flow's current step
// @Tags         flows
// @Produce      json
// @Param        id   path      string  true  "Flow id"
// @Success      200  {object}  configflow.Result
// @Failure      404  {object}  types.ErrorResponse  "Flow not found"
// @Router       /flows/{id} [get]
func (h *FlowsHandler) GetFlow(c *gin.Context) {
	res, err := h.flows.Get(c.Param("id"))
	if err != nil {
		respondError(c, err, "flow_error")
		return
	}
	c.JSON(http.StatusOK, res)
}

// ConfigureFlow handles POST /flows/:id
// @Summary      Submit a flow step
// @Description  Submits form input, or {"next_step_id": "..."} for menus. Invalid form input returns the form again with errors
// @Tags         flows
// @Accept       json
// @Produce      json
// @Param        id       path      string  true   "Flow id"
// @Param        request  body      object  false  "Step input"
// @Success      200      {object}  configflow.Result
// @Failure      400      {object}  types.ErrorResponse  "Unknown step"
// @Failure      404      {object}  types.ErrorResponse  "Flow not found"
// @Router       /flows/{id} [post]
func (h *FlowsHandler) ConfigureFlow(c *gin.Context) {
	var input map[string]any
	if err := json.NewDecoder(c.Request.Body).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body")
		return
	}

	res, err := h.flows.Configure(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err, "flow_error")
		return
	}
	c.JSON(http.StatusOK, res)
}

// AbortFlow handles DELETE /flows/:id
// @Summary      Abort a flow
// @Tags         flows
// @Param        id   path  string  true  "Flow id"
// @Success      204  "Flow aborted"
// @Failure      404  {object}  types.ErrorResponse  "Flow not found"
// @Router       /flows/{id} [delete]
func (h *FlowsHandler) AbortFlow(c *gin.Context) {
	if err := h.flows.Abort(c.Param("id")); err != nil {
		respondError(c, err, "flow_error")
		return
	}
	c.Status(http.StatusNoContent)
}
