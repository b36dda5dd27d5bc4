package models

import (
	"time"
)

// NotificationType values stored in notifications.type
const (
	NotificationLike        = "like"
	NotificationComment     = "comment"
	NotificationReply       = "reply"
	NotificationFollow      = "follow"
	NotificationGroupInvite = "group_invite"
)

// Notification is delivered to a recipient when another user acts on
// their content.
type Notification struct {
	ID          int64  `json:"id"`
	RecipientID int64  `json:"recipient_id"`
	ActorID     int64  `json:"actor_id"`
	Type        string `json:"type"`

	// Optional references depending on Type
	ReviewID      *int64 `json:"review_id,omitempty"`
	CommentID     *int64 `json:"comment_id,omitempty"`
	GroupInviteID *int64 `json:"group_invite_id,omitempty"`

	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`

	// Denormalized on reads
	ActorUsername string `json:"actor_username,omitempty"`
}

// ValidNotificationType checks a type against the known set
func ValidNotificationType(t string) bool {
	switch t {
	case NotificationLike, NotificationComment, NotificationReply,
		NotificationFollow, NotificationGroupInvite:
		return true
	}
	return false
}
