package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"postal-prediction-api/services"
)

type StatsHandler struct {
	data        *services.DatasetService
	stats       *services.StatsService
	predictions *services.PredictionService
	cache       *services.CacheService
}

func NewStatsHandler(data *services.DatasetService, stats *services.StatsService, predictions *services.PredictionService, cache *services.CacheService) *StatsHandler {
	return &StatsHandler{data: data, stats: stats, predictions: predictions, cache: cache}
}

func (h *StatsHandler) GetOverview(c *gin.Context) {
	const cacheKey = "stats:overview"

	var cached services.Overview
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && cached.TotalShipments > 0 {
		c.JSON(http.StatusOK, cached)
		return
	}

	events, err := h.data.ItemEvents()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reference data unavailable"})
		return
	}

	logged, err := h.predictions.ItemLog().ReadAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read prediction log"})
		return
	}

	overview := h.stats.Overview(events, logged)
	go h.cache.Set(context.Background(), cacheKey, overview, 30*time.Second)

	c.JSON(http.StatusOK, overview)
}
