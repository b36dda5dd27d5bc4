package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"soundscore/internal/auth"
	"soundscore/internal/services"
)

// streamKeepAlive is how often the SSE stream sends a comment to keep
// proxies from closing the connection.
const streamKeepAlive = 30 * time.Second

// NotificationHandler serves the notification list and the live stream
type NotificationHandler struct {
	notifications *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List handles GET /api/v1/notifications?unread=true
func (h *NotificationHandler) List(c *gin.Context) {
	user := auth.CurrentUser(c)
	limit, offset := pagination(c)
	unreadOnly := c.Query("unread") == "true"

	notifications, err := h.notifications.List(c.Request.Context(), user.ID, unreadOnly, limit, offset)
	if err != nil {
		slog.Error("Failed to list notifications", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// UnreadCount handles GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	user := auth.CurrentUser(c)

	count, err := h.notifications.UnreadCount(c.Request.Context(), user.ID)
	if err != nil {
		slog.Error("Failed to count notifications", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load count"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkRead handles POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notificationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	user := auth.CurrentUser(c)

	marked, err := h.notifications.MarkRead(c.Request.Context(), notificationID, user.ID)
	if err != nil {
		slog.Error("Failed to mark notification read", "notification_id", notificationID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark read"})
		return
	}
	if !marked {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Read"})
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	user := auth.CurrentUser(c)

	if err := h.notifications.MarkAllRead(c.Request.Context(), user.ID); err != nil {
		slog.Error("Failed to mark all read", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All read"})
}

// Stream handles GET /api/v1/notifications/stream?token=, a server-sent
// events stream of new notifications.
func (h *NotificationHandler) Stream(c *gin.Context) {
	user := auth.CurrentUser(c)

	events, cancel := h.notifications.Subscribe(user.ID)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-keepAlive.C:
			c.SSEvent("ping", "")
			return true
		case n, open := <-events:
			if !open {
				return false
			}
			payload, err := json.Marshal(n)
			if err != nil {
				slog.Error("Failed to encode notification", "error", err)
				return true
			}
			c.SSEvent("notification", string(payload))
			return true
		}
	})
}
