package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/world-cell-towers/internal/dashboard"
	"github.com/jengzang/world-cell-towers/internal/models"
	"github.com/jengzang/world-cell-towers/internal/repository"
	"github.com/jengzang/world-cell-towers/pkg/response"
)

// Dispatcher turns dashboard events into outputs
type Dispatcher interface {
	Dispatch(ctx context.Context, event models.DashboardEvent) (*dashboard.Response, error)
}

// DashboardHandler handles HTTP requests for the cross-filter dashboard
type DashboardHandler struct {
	dispatcher Dispatcher
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dispatcher Dispatcher) *DashboardHandler {
	return &DashboardHandler{dispatcher: dispatcher}
}

// GetDashboard renders the initial, unfiltered dashboard
// GET /api/v1/dashboard
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	h.dispatch(c, models.DashboardEvent{})
}

// PostEvent applies one UI event
// POST /api/v1/dashboard/events
func (h *DashboardHandler) PostEvent(c *gin.Context) {
	var event models.DashboardEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}
	h.dispatch(c, event)
}

func (h *DashboardHandler) dispatch(c *gin.Context, event models.DashboardEvent) {
	resp, err := h.dispatcher.Dispatch(c.Request.Context(), event)
	switch {
	case err == nil:
		response.Success(c, resp)
	case errors.Is(err, dashboard.ErrInvalidSelection), errors.Is(err, dashboard.ErrUnknownTrigger):
		response.BadRequest(c, err.Error(), err)
	case errors.Is(err, repository.ErrNotPublished):
		response.ServiceUnavailable(c, "Datasets are not published yet", err)
	default:
		response.InternalError(c, "Failed to update dashboard", err)
	}
}
