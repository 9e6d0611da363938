package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/world-cell-towers/internal/models"
	"github.com/jengzang/world-cell-towers/pkg/response"
)

// DatasetLister lists the published namespace
type DatasetLister interface {
	List(ctx context.Context) ([]models.DatasetInfo, error)
}

// DatasetHandler exposes publication metadata
type DatasetHandler struct {
	datasets DatasetLister
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(datasets DatasetLister) *DatasetHandler {
	return &DatasetHandler{datasets: datasets}
}

// ListDatasets returns name, size and publication time of every dataset
// GET /api/v1/datasets
func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	infos, err := h.datasets.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, "Failed to list datasets", err)
		return
	}
	response.Success(c, gin.H{
		"datasets": infos,
		"total":    len(infos),
	})
}
