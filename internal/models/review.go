package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Rating bounds for reviews
const (
	MinRating = 1
	MaxRating = 5
)

// Review represents a user's rating and writeup for an album.
// A user can review an album at most once.
type Review struct {
	ID         int64     `json:"id"`
	UUID       string    `json:"uuid"`
	UserID     int64     `json:"user_id"`
	AlbumID    int64     `json:"album_id"`
	Rating     int       `json:"rating"`
	Text       string    `json:"text,omitempty"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Denormalized fields populated on reads
	Username     string `json:"username,omitempty"`
	Album        *Album `json:"album,omitempty"`
	LikeCount    int    `json:"like_count"`
	CommentCount int    `json:"comment_count"`
	LikedByMe    bool   `json:"liked_by_me"`
}

// NewReview creates a Review with a fresh public UUID
func NewReview(userID, albumID int64, rating int, text string, isFavorite bool) *Review {
	now := time.Now()
	return &Review{
		UUID:       uuid.NewString(),
		UserID:     userID,
		AlbumID:    albumID,
		Rating:     rating,
		Text:       text,
		IsFavorite: isFavorite,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ValidateRating checks the 1..5 rating bound
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("rating must be between %d and %d", MinRating, MaxRating)
	}
	return nil
}

// Comment represents a comment on a review. ParentID is set for replies;
// threads are one level deep.
type Comment struct {
	ID        int64     `json:"id"`
	ReviewID  int64     `json:"review_id"`
	UserID    int64     `json:"user_id"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`

	Username  string    `json:"username,omitempty"`
	LikeCount int       `json:"like_count"`
	LikedByMe bool      `json:"liked_by_me"`
	Replies   []Comment `json:"replies,omitempty"`
}

// IsReply reports whether the comment is nested under another comment
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}
