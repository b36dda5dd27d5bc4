package ws

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"soundscore/internal/auth"
	"soundscore/internal/models"
	"soundscore/internal/repositories"
)

// DMChatHandler serves the live direct-message socket
type DMChatHandler struct {
	hub    *Hub
	tokens *auth.TokenService
	users  repositories.UserRepository
	dms    repositories.DMRepository
}

// NewDMChatHandler creates a new DM chat handler
func NewDMChatHandler(hub *Hub, tokens *auth.TokenService, users repositories.UserRepository, dms repositories.DMRepository) *DMChatHandler {
	return &DMChatHandler{hub: hub, tokens: tokens, users: users, dms: dms}
}

// Serve handles GET /ws/dm/:id?token=. Invalid tokens close with 4001,
// non-participants with 4003.
func (h *DMChatHandler) Serve(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	user := resolveUser(c, h.tokens, h.users)
	if user == nil {
		Reject(conn, CloseInvalidToken, "invalid token")
		return
	}

	conversation, err := h.dms.FindConversation(c.Request.Context(), conversationID)
	if err != nil || conversation == nil || !conversation.HasParticipant(user.ID) {
		Reject(conn, CloseNotAMember, "not a participant")
		return
	}

	room := h.hub.Room(DMRoomKey(conversationID))
	client := room.Join(conn, user.ID, user.Username)

	// Opening the socket reads the thread
	h.markRead(c, room, user, conversationID)

	client.ReadLoop(func(frame Frame) {
		switch frame.Type {
		case TypeTyping:
			room.Broadcast(Frame{Type: TypeTyping, UserID: user.ID, Username: user.Username})
		case TypeMessage:
			h.handleMessage(c, room, user, conversationID, frame)
		case TypeRead:
			h.markRead(c, room, user, conversationID)
		}
	})
}

// markRead flags the thread read for the user and tells the other side
func (h *DMChatHandler) markRead(c *gin.Context, room *Room, user *models.User, conversationID int64) {
	if err := h.dms.MarkRead(c.Request.Context(), conversationID, user.ID); err != nil {
		slog.Error("Failed to mark conversation read", "conversation_id", conversationID, "error", err)
		return
	}
	room.Broadcast(Frame{Type: TypeRead, UserID: user.ID})
}

func (h *DMChatHandler) handleMessage(c *gin.Context, room *Room, user *models.User, conversationID int64, frame Frame) {
	text := strings.TrimSpace(frame.Text)
	if text == "" && frame.ImageURL == "" {
		return
	}

	msg := &models.DirectMessage{
		ConversationID: conversationID,
		SenderID:       user.ID,
		Text:           text,
		ImageURL:       frame.ImageURL,
	}
	if err := h.dms.CreateMessage(c.Request.Context(), msg); err != nil {
		slog.Error("Failed to store direct message", "conversation_id", conversationID, "error", err)
		return
	}

	room.Broadcast(Frame{
		Type:      TypeMessage,
		MessageID: msg.ID,
		UserID:    user.ID,
		Username:  user.Username,
		Text:      msg.Text,
		ImageURL:  msg.ImageURL,
		SentAt:    msg.CreatedAt,
	})
}
