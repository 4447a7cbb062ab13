package handlers

import (
	"net/http"
	"os"

	"hydrogen-bypass/internal/api/models"
	"hydrogen-bypass/internal/data"

	"github.com/gin-gonic/gin"
)

// DatasetHandler lists the CSV series available to runs
type DatasetHandler struct {
	dataDir string
}

func NewDatasetHandler(dataDir string) *DatasetHandler {
	return &DatasetHandler{dataDir: dataDir}
}

// ListDatasets handles GET /api/v1/datasets
func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	found, err := data.ListDatasets(h.dataDir)
	if err != nil && !os.IsNotExist(err) {
		respondError(c, http.StatusInternalServerError, "DATASET_LOAD_ERROR", err.Error(), nil)
		return
	}

	datasets := make([]models.DatasetInfo, 0, len(found))
	for _, ds := range found {
		datasets = append(datasets, models.DatasetInfo{
			File:    ds.File,
			Columns: ds.Columns,
			Rows:    ds.Rows,
			Start:   ds.Start,
			End:     ds.End,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"datasets": datasets,
		"count":    len(datasets),
	})
}
