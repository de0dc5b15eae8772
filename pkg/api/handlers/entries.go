package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/gryfd/pkg/api/types"
	"github.com/urmzd/gryfd/pkg/configflow"
	"github.com/urmzd/gryfd/pkg/db"
	"github.com/urmzd/gryfd/pkg/integration"
)

// EntryLoader unloads entries and reports which ones are set up.
type EntryLoader interface {
	UnloadEntry(ctx context.Context, entryID string) error
	Status() []integration.BusStatus
}

// EntriesHandler handles config entry endpoints
type EntriesHandler struct {
	entries db.EntryStore
	loader  EntryLoader
	flows   *configflow.Manager
}

// NewEntriesHandler creates a new entries handler
func NewEntriesHandler(entries db.EntryStore, loader EntryLoader, flows *configflow.Manager) *EntriesHandler {
	return &EntriesHandler{entries: entries, loader: loader, flows: flows}
}

func (h *EntriesHandler) loaded() map[string]bool {
	out := make(map[string]bool)
	for _, s := range h.loader.Status() {
		out[s.EntryID] = true
	}
	return out
}

func toEntry(e *db.ConfigEntry, loaded bool) types.Entry {
	return types.Entry{
		EntryID:   e.EntryID,
		UniqueID:  e.UniqueID,
		Title:     e.Title,
		Data:      e.Data,
		Options:   e.Options,
		Loaded:    loaded,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// ListEntries handles GET /entries
// @Summary      List config entries
// @Tags         entries
// @Produce      json
// @Success      200  {object}  types.ListEntriesResponse
// @Failure      500  {object}  types.ErrorResponse  "Database error"
// @Router       /entries [get]
func (h *EntriesHandler) ListEntries(c *gin.Context) {
	list, err := h.entries.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "database_error")
		return
	}

	loaded := h.loaded()
	result := make([]types.Entry, 0, len(list))
	for _, e := range list {
		result = append(result, toEntry(e, loaded[e.EntryID]))
	}
	c.JSON(http.StatusOK, types.ListEntriesResponse{Entries: result, Count: len(result)})
}

// GetEntry handles GET /entries/:id
// @Summary      Get a config entry
// @Tags         entries
// @Produce      json
// @Param        id   path      string  true  "Entry id"
// @Success      200  {object}  types.Entry
// @Failure      404  {object}  types.ErrorResponse  "Entry not found"
// @Router       /entries/{id} [get]
func (h *EntriesHandler) GetEntry(c *gin.Context) {
	e, err := h.entries.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "database_error")
		return
	}
	c.JSON(http.StatusOK, toEntry(e, h.loaded()[e.EntryID]))
}

// DeleteEntry handles DELETE /entries/:id
// @Summary      Delete a config entry
// @Description  Unloads the entry's entities, closes its bus when unused and deletes the entry
// @Tags         entries
// @Param        id   path  string  true  "Entry id"
// @Success      204  "Entry deleted"
// @Failure      404  {object}  types.ErrorResponse  "Entry not found"
// @Router       /entries/{id} [delete]
func (h *EntriesHandler) DeleteEntry(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if err := h.loader.UnloadEntry(ctx, id); err != nil && !errors.Is(err, integration.ErrEntryNotFound) {
		respondError(c, err, "unload_error")
		return
	}
	if err := h.entries.Delete(ctx, id); err != nil {
		respondError(c, err, "database_error")
		return
	}

	log.Info().Str("entry", id).Msg("Config entry deleted")
	c.Status(http.StatusNoContent)
}

// StartOptions handles POST /entries/:id/options
// @Summary      Start an options flow
// @Description  Begins editing an entry's devices and communication settings
// @Tags         flows
// @Produce      json
// @Param        id   path      string  true  "Entry id"
// @Success      200  {object}  configflow.Result
// @Failure      404  {object}  types.ErrorResponse  "Entry not found"
// @Router       /entries/{id}/options [post]
func (h *EntriesHandler) StartOptions(c *gin.Context) {
	res, err := h.flows.StartOptions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "flow_error")
		return
	}
	c.JSON(http.StatusOK, res)
}
