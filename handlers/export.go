package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"postal-prediction-api/services"
)

type ExportHandler struct {
	predictions *services.PredictionService
	export      *services.ExportService
}

func NewExportHandler(predictions *services.PredictionService, export *services.ExportService) *ExportHandler {
	return &ExportHandler{predictions: predictions, export: export}
}

func (h *ExportHandler) ItemPDF(c *gin.Context) {
	id := c.Param("id")
	result, err := h.predictions.PredictItem(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no scan events for this item id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
		return
	}

	pdf, err := h.export.ItemReport(result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render report"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=prediction_%s.pdf", id))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *ExportHandler) ReceptaclePDF(c *gin.Context) {
	id := c.Param("id")
	result, err := h.predictions.PredictReceptacle(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no scan events for this receptacle id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
		return
	}

	pdf, err := h.export.ReceptacleReport(result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render report"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=prediction_%s.pdf", id))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
