package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"postal-prediction-api/services"
)

type PredictionHandler struct {
	predictions *services.PredictionService
	cache       *services.CacheService
}

func NewPredictionHandler(predictions *services.PredictionService, cache *services.CacheService) *PredictionHandler {
	return &PredictionHandler{predictions: predictions, cache: cache}
}

func (h *PredictionHandler) PredictItem(c *gin.Context) {
	result, err := h.predictions.PredictItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no scan events for this item id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PredictionHandler) PredictReceptacle(c *gin.Context) {
	result, err := h.predictions.PredictReceptacle(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no scan events for this receptacle id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PredictionHandler) GetItemLog(c *gin.Context) {
	h.serveLog(c, "item", h.predictions.ItemLog())
}

func (h *PredictionHandler) GetReceptacleLog(c *gin.Context) {
	h.serveLog(c, "receptacle", h.predictions.ReceptacleLog())
}

// serveLog pages through the prediction log newest first, cursoring on the
// logged timestamp.
func (h *PredictionHandler) serveLog(c *gin.Context, kind string, log *services.PredictionLog) {
	q := ParseLogQuery(c)

	beforeStr := ""
	if q.Before != nil {
		beforeStr = q.Before.Format(time.RFC3339Nano)
	}
	cacheKey := fmt.Sprintf("predictions:log:%s:%d:%s", kind, q.Limit, beforeStr)

	var cached LogPage
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && cached.Predictions != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	records, err := log.ReadAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read prediction log"})
		return
	}

	page := q.Page(records)
	go h.cache.Set(context.Background(), cacheKey, page, 30*time.Second)

	c.JSON(http.StatusOK, page)
}
