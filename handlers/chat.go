package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"postal-prediction-api/models"
	"postal-prediction-api/services"
)

type ChatHandler struct {
	chat        *services.ChatService
	predictions *services.PredictionService
}

func NewChatHandler(chat *services.ChatService, predictions *services.PredictionService) *ChatHandler {
	return &ChatHandler{chat: chat, predictions: predictions}
}

type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *ChatHandler) Ask(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	referenceColumns := []string{
		models.ColItemID, models.ColReceptacleID, models.ColDate,
		models.ColFacility, models.ColNextFacility, models.ColEventType,
	}
	result := h.chat.Ask(c.Request.Context(), req.Message,
		referenceColumns, h.predictions.ItemLog().Columns())

	c.JSON(http.StatusOK, result)
}
