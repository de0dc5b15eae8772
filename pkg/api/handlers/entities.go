package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/gryfd/pkg/api/types"
	"github.com/urmzd/gryfd/pkg/device"
)

// EntitiesHandler handles entity listing endpoints
type EntitiesHandler struct {
	controller device.Controller
}

// NewEntitiesHandler creates a new entities handler
func NewEntitiesHandler(controller device.Controller) *EntitiesHandler {
	return &EntitiesHandler{controller: controller}
}

// ListEntities handles GET /entities
// @Summary      List all entities
// @Description  Returns every entity of every set up bus with its last known state
// @Tags         entities
// @Produce      json
// @Param        entry_id  query     string  false  "Only entities of this config entry"
// @Param        component query     string  false  "Only entities of this component (light, switch, cover, ...)"
// @Success      200       {object}  types.ListEntitiesResponse
// @Failure      500       {object}  types.ErrorResponse  "Registry error"
// @Router       /entities [get]
func (h *EntitiesHandler) ListEntities(c *gin.Context) {
	ctx := c.Request.Context()
	entryID := c.Query("entry_id")
	component := c.Query("component")

	entities, err := h.controller.ListEntities(ctx)
	if err != nil {
		respondError(c, err, "registry_error")
		return
	}

	result := []types.EntityWithState{}
	for _, e := range entities {
		if entryID != "" && e.EntryID != entryID {
			continue
		}
		if component != "" && e.Component != component {
			continue
		}

		// State lookups only fail for entities removed meanwhile.
		state, _ := h.controller.GetState(ctx, e.ID)
		result = append(result, types.EntityFromDevice(e, state))
	}

	c.JSON(http.StatusOK, types.ListEntitiesResponse{
		Entities: result,
		Count:    len(result),
	})
}

// GetEntity handles GET /entities/:id
// @Summary      Get entity details
// @Description  Returns one entity with its state schema and state
// @Tags         entities
// @Produce      json
// @Param        id   path      string  true  "Entity id"
// @Success      200  {object}  types.EntityResponse
// @Failure      404  {object}  types.ErrorResponse  "Entity not found"
// @Failure      500  {object}  types.ErrorResponse  "Registry error"
// @Router       /entities/{id} [get]
func (h *EntitiesHandler) GetEntity(c *gin.Context) {
	ctx := c.Request.Context()

	e, err := h.controller.GetEntity(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "registry_error")
		return
	}

	state, _ := h.controller.GetState(ctx, e.ID)
	c.JSON(http.StatusOK, types.EntityResponse{
		Entity: types.EntityFromDevice(*e, state),
	})
}
