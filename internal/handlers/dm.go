package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"soundscore/internal/auth"
	"soundscore/internal/models"
	"soundscore/internal/repositories"
	"soundscore/internal/services"
	"soundscore/internal/ws"
)

// StartConversationRequest opens (or reuses) a thread with another user
type StartConversationRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// SendMessageRequest is the REST message payload
type SendMessageRequest struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url"`
}

// DMHandler handles direct message threads. Live delivery happens over
// the WebSocket; these endpoints serve history, thread management and
// sending from clients without an open socket.
type DMHandler struct {
	dms     repositories.DMRepository
	users   repositories.UserRepository
	hub     *ws.Hub
	storage *services.StorageService
}

// NewDMHandler creates a new DM handler. storage may be nil when image
// uploads are not configured.
func NewDMHandler(dms repositories.DMRepository, users repositories.UserRepository, hub *ws.Hub, storage *services.StorageService) *DMHandler {
	return &DMHandler{dms: dms, users: users, hub: hub, storage: storage}
}

// ListConversations handles GET /api/v1/dm/conversations
func (h *DMHandler) ListConversations(c *gin.Context) {
	user := auth.CurrentUser(c)

	conversations, err := h.dms.ListConversations(c.Request.Context(), user.ID)
	if err != nil {
		slog.Error("Failed to list conversations", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// StartConversation handles POST /api/v1/dm/conversations
func (h *DMHandler) StartConversation(c *gin.Context) {
	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	user := auth.CurrentUser(c)

	if req.UserID == user.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot message yourself"})
		return
	}
	other, err := h.users.FindByID(c.Request.Context(), req.UserID)
	if err != nil {
		slog.Error("Failed to look up user", "user_id", req.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start conversation"})
		return
	}
	if other == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	conversation, err := h.dms.GetOrCreateConversation(c.Request.Context(), user.ID, req.UserID)
	if err != nil {
		slog.Error("Failed to create conversation", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start conversation"})
		return
	}

	profile := other.PublicProfile()
	conversation.OtherUser = &profile
	c.JSON(http.StatusOK, conversation)
}

// ListMessages handles GET /api/v1/dm/conversations/:id/messages
func (h *DMHandler) ListMessages(c *gin.Context) {
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	user := auth.CurrentUser(c)

	conversation, err := h.dms.FindConversation(c.Request.Context(), conversationID)
	if err != nil {
		slog.Error("Failed to load conversation", "conversation_id", conversationID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}
	if conversation == nil || !conversation.HasParticipant(user.ID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	limit, _ := pagination(c)
	messages, err := h.dms.ListMessages(c.Request.Context(), conversationID, beforeCursor(c), limit)
	if err != nil {
		slog.Error("Failed to list messages", "conversation_id", conversationID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}

	// Opening the thread reads it
	if err := h.dms.MarkRead(c.Request.Context(), conversationID, user.ID); err != nil {
		slog.Warn("Failed to mark conversation read", "conversation_id", conversationID, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SendMessage handles POST /api/v1/dm/conversations/:id/messages. The
// stored message is also pushed to any open sockets on the thread.
func (h *DMHandler) SendMessage(c *gin.Context) {
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	user := auth.CurrentUser(c)

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" && req.ImageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is empty"})
		return
	}

	conversation, err := h.dms.FindConversation(c.Request.Context(), conversationID)
	if err != nil {
		slog.Error("Failed to load conversation", "conversation_id", conversationID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}
	if conversation == nil || !conversation.HasParticipant(user.ID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	msg := &models.DirectMessage{
		ConversationID: conversationID,
		SenderID:       user.ID,
		Text:           text,
		ImageURL:       req.ImageURL,
	}
	if err := h.dms.CreateMessage(c.Request.Context(), msg); err != nil {
		slog.Error("Failed to store direct message", "conversation_id", conversationID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	if h.hub != nil {
		h.hub.Room(ws.DMRoomKey(conversationID)).Broadcast(ws.Frame{
			Type:      ws.TypeMessage,
			MessageID: msg.ID,
			UserID:    user.ID,
			Username:  user.Username,
			Text:      msg.Text,
			ImageURL:  msg.ImageURL,
			SentAt:    msg.CreatedAt,
		})
	}
	c.JSON(http.StatusCreated, msg)
}

// UploadImage handles POST /api/v1/dm/conversations/:id/image. The
// returned URL goes into a message via SendMessage or the socket.
func (h *DMHandler) UploadImage(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image uploads are not configured"})
		return
	}
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	user := auth.CurrentUser(c)

	conversation, err := h.dms.FindConversation(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}
	if conversation == nil || !conversation.HasParticipant(user.ID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	url, ok := receiveUpload(c, h.storage, services.BucketDMImages, user.ID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// UnreadCount handles GET /api/v1/dm/unread-count
func (h *DMHandler) UnreadCount(c *gin.Context) {
	user := auth.CurrentUser(c)

	count, err := h.dms.UnreadCount(c.Request.Context(), user.ID)
	if err != nil {
		slog.Error("Failed to count unread messages", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load unread count"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkRead handles POST /api/v1/dm/conversations/:id/read
func (h *DMHandler) MarkRead(c *gin.Context) {
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	user := auth.CurrentUser(c)

	conversation, err := h.dms.FindConversation(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark read"})
		return
	}
	if conversation == nil || !conversation.HasParticipant(user.ID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	if err := h.dms.MarkRead(c.Request.Context(), conversationID, user.ID); err != nil {
		slog.Error("Failed to mark conversation read", "conversation_id", conversationID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Read"})
}
