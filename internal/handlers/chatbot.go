package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"soundscore/internal/auth"
	"soundscore/internal/services"
)

// AskRequest is one chatbot question
type AskRequest struct {
	Question string `json:"question" binding:"required,max=500"`
}

// ChatbotHandler exposes the database assistant
type ChatbotHandler struct {
	chatbot *services.ChatbotService
}

// NewChatbotHandler creates a new chatbot handler
func NewChatbotHandler(chatbot *services.ChatbotService) *ChatbotHandler {
	return &ChatbotHandler{chatbot: chatbot}
}

// Ask handles POST /api/v1/chatbot/ask
func (h *ChatbotHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	user := auth.CurrentUser(c)

	answer, err := h.chatbot.Ask(c.Request.Context(), user.ID, req.Question)
	if err != nil {
		slog.Error("Chatbot ask failed", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Assistant is unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// History handles GET /api/v1/chatbot/history
func (h *ChatbotHandler) History(c *gin.Context) {
	user := auth.CurrentUser(c)

	messages, err := h.chatbot.History(c.Request.Context(), user.ID)
	if err != nil {
		slog.Error("Failed to load chat history", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
