package ws

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"soundscore/internal/auth"
	"soundscore/internal/models"
	"soundscore/internal/repositories"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin browsers connect from the frontend; bearer auth
	// happens after the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GroupChatHandler serves the live group chat socket
type GroupChatHandler struct {
	hub    *Hub
	tokens *auth.TokenService
	users  repositories.UserRepository
	groups repositories.GroupRepository
}

// NewGroupChatHandler creates a new group chat handler
func NewGroupChatHandler(hub *Hub, tokens *auth.TokenService, users repositories.UserRepository, groups repositories.GroupRepository) *GroupChatHandler {
	return &GroupChatHandler{hub: hub, tokens: tokens, users: users, groups: groups}
}

// Serve handles GET /ws/groups/:id?token=. Invalid tokens close with
// 4001, non-members with 4003.
func (h *GroupChatHandler) Serve(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || groupID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
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

	member, err := h.groups.FindMember(c.Request.Context(), groupID, user.ID)
	if err != nil || member == nil {
		Reject(conn, CloseNotAMember, "not a member")
		return
	}

	room := h.hub.Room(GroupRoomKey(groupID))
	client := room.Join(conn, user.ID, user.Username)

	client.ReadLoop(func(frame Frame) {
		switch frame.Type {
		case TypeTyping:
			room.Broadcast(Frame{Type: TypeTyping, UserID: user.ID, Username: user.Username})
		case TypeMessage:
			h.handleMessage(c, room, user, groupID, frame)
		}
	})
}

func (h *GroupChatHandler) handleMessage(c *gin.Context, room *Room, user *models.User, groupID int64, frame Frame) {
	text := strings.TrimSpace(frame.Text)
	if text == "" && frame.ImageURL == "" {
		return
	}

	msg := &models.GroupMessage{
		GroupID:  groupID,
		UserID:   user.ID,
		Text:     text,
		ImageURL: frame.ImageURL,
	}
	if err := h.groups.CreateMessage(c.Request.Context(), msg); err != nil {
		slog.Error("Failed to store group message", "group_id", groupID, "error", err)
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

// resolveUser authenticates the token query parameter
func resolveUser(c *gin.Context, tokens *auth.TokenService, users repositories.UserRepository) *models.User {
	token := c.Query("token")
	if token == "" {
		return nil
	}
	userID, err := tokens.Verify(token, auth.TokenTypeAccess)
	if err != nil {
		return nil
	}
	user, err := users.FindByID(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Failed to load socket user", "user_id", userID, "error", err)
		return nil
	}
	return user
}
