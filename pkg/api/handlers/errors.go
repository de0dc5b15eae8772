package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/gryfd/pkg/api/types"
	"github.com/urmzd/gryfd/pkg/configflow"
	"github.com/urmzd/gryfd/pkg/db"
	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/gryf"
	"github.com/urmzd/gryfd/pkg/integration"
)

// errorMapping pairs a sentinel error with its HTTP status and error code.
type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{device.ErrNotFound, http.StatusNotFound, "not_found"},
	{integration.ErrEntryNotFound, http.StatusNotFound, "entry_not_found"},
	{db.ErrEntryNotFound, http.StatusNotFound, "entry_not_found"},
	{configflow.ErrEntryNotFound, http.StatusNotFound, "entry_not_found"},
	{configflow.ErrFlowNotFound, http.StatusNotFound, "flow_not_found"},
	{configflow.ErrUnknownStep, http.StatusBadRequest, "unknown_step"},
	{device.ErrValidation, http.StatusBadRequest, "validation_error"},
	{device.ErrUnsupported, http.StatusBadRequest, "unsupported"},
	{device.ErrNotConnected, http.StatusServiceUnavailable, "bus_disconnected"},
	{gryf.ErrNotConnected, http.StatusServiceUnavailable, "bus_disconnected"},
	{integration.ErrNotReady, http.StatusServiceUnavailable, "not_ready"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

// respondError writes err as an ErrorResponse. Unknown errors are reported
// as fallback with status 500.
func respondError(c *gin.Context, err error, fallback string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			c.JSON(m.status, types.ErrorResponse{Error: m.code, Message: err.Error()})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, types.ErrorResponse{
		Error:   fallback,
		Message: err.Error(),
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, types.ErrorResponse{
		Error:   "invalid_request",
		Message: message,
	})
}
