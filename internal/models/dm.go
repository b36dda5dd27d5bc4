package models

import (
	"time"
)

// Conversation is a direct-message thread between two users. The pair is
// stored normalized with User1ID < User2ID so each pair has one row.
type Conversation struct {
	ID        int64     `json:"id"`
	User1ID   int64     `json:"user1_id"`
	User2ID   int64     `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`

	// Denormalized for the conversation list
	OtherUser   *PublicProfile `json:"other_user,omitempty"`
	LastMessage *DirectMessage `json:"last_message,omitempty"`
	UnreadCount int            `json:"unread_count"`
}

// NormalizeUserPair orders two user IDs for conversation storage
func NormalizeUserPair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// OtherUserID returns the participant that is not userID
func (c *Conversation) OtherUserID(userID int64) int64 {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// HasParticipant reports whether userID belongs to the conversation
func (c *Conversation) HasParticipant(userID int64) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// DirectMessage is a single message within a conversation
type DirectMessage struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Text           string    `json:"text"`
	ImageURL       string    `json:"image_url,omitempty"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}
