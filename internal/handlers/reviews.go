package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"soundscore/internal/auth"
	"soundscore/internal/models"
	"soundscore/internal/repositories"
	"soundscore/internal/services"
)

// CreateReviewRequest is the payload for posting a review
type CreateReviewRequest struct {
	SpotifyAlbumID string `json:"spotify_album_id" binding:"required"`
	Rating         int    `json:"rating" binding:"required"`
	Text           string `json:"text"`
	IsFavorite     bool   `json:"is_favorite"`
}

// UpdateReviewRequest is the payload for editing a review
type UpdateReviewRequest struct {
	Rating     *int    `json:"rating"`
	Text       *string `json:"text"`
	IsFavorite *bool   `json:"is_favorite"`
}

// CreateCommentRequest is the payload for commenting on a review
type CreateCommentRequest struct {
	Text     string `json:"text" binding:"required"`
	ParentID *int64 `json:"parent_id"`
}

// ReviewHandler handles reviews, likes and comment threads
type ReviewHandler struct {
	reviews       repositories.ReviewRepository
	comments      repositories.CommentRepository
	catalog       *services.CatalogService
	notifications *services.NotificationService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviews repositories.ReviewRepository, comments repositories.CommentRepository,
	catalog *services.CatalogService, notifications *services.NotificationService) *ReviewHandler {
	return &ReviewHandler{
		reviews:       reviews,
		comments:      comments,
		catalog:       catalog,
		notifications: notifications,
	}
}

// Create handles POST /api/v1/reviews
func (h *ReviewHandler) Create(c *gin.Context) {
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := models.ValidateRating(req.Rating); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user := auth.CurrentUser(c)

	album, err := h.catalog.ResolveAlbum(c.Request.Context(), req.SpotifyAlbumID)
	if err != nil {
		slog.Error("Failed to resolve album for review", "spotify_id", req.SpotifyAlbumID, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Album not found"})
		return
	}

	review := models.NewReview(user.ID, album.ID, req.Rating, req.Text, req.IsFavorite)
	if err := h.reviews.Create(c.Request.Context(), review); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "You already reviewed this album"})
			return
		}
		slog.Error("Failed to create review", "user_id", user.ID, "album_id", album.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create review"})
		return
	}

	review.Username = user.Username
	review.Album = album
	c.JSON(http.StatusCreated, review)
}

// Get handles GET /api/v1/reviews/:id
func (h *ReviewHandler) Get(c *gin.Context) {
	reviewID, ok := pathID(c, "id")
	if !ok {
		return
	}
	review, err := h.reviews.FindByID(c.Request.Context(), reviewID, viewerID(c))
	if err != nil {
		slog.Error("Failed to load review", "review_id", reviewID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load review"})
		return
	}
	if review == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return
	}
	c.JSON(http.StatusOK, review)
}

// GetByUUID handles GET /api/v1/reviews/u/:uuid for shareable links
func (h *ReviewHandler) GetByUUID(c *gin.Context) {
	review, err := h.reviews.FindByUUID(c.Request.Context(), c.Param("uuid"), viewerID(c))
	if err != nil {
		slog.Error("Failed to load review", "uuid", c.Param("uuid"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load review"})
		return
	}
	if review == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return
	}
	c.JSON(http.StatusOK, review)
}

// ListByUser handles GET /api/v1/users/:id/reviews
func (h *ReviewHandler) ListByUser(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, offset := pagination(c)

	reviews, err := h.reviews.ListByUser(c.Request.Context(), userID, viewerID(c), limit, offset)
	if err != nil {
		slog.Error("Failed to list reviews", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load reviews"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// Update handles PATCH /api/v1/reviews/:id
func (h *ReviewHandler) Update(c *gin.Context) {
	reviewID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	user := auth.CurrentUser(c)

	review, err := h.reviews.FindByID(c.Request.Context(), reviewID, user.ID)
	if err != nil {
		slog.Error("Failed to load review", "review_id", reviewID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update review"})
		return
	}
	if review == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return
	}
	if review.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your review"})
		return
	}

	if req.Rating != nil {
		if err := models.ValidateRating(*req.Rating); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		review.Rating = *req.Rating
	}
	if req.Text != nil {
		review.Text = *req.Text
	}
	if req.IsFavorite != nil {
		review.IsFavorite = *req.IsFavorite
	}

	if err := h.reviews.Update(c.Request.Context(), review); err != nil {
		slog.Error("Failed to update review", "review_id", reviewID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update review"})
		return
	}
	c.JSON(http.StatusOK, review)
}

// Delete handles DELETE /api/v1/reviews/:id
func (h *ReviewHandler) Delete(c *gin.Context) {
	reviewID, ok := pathID(c, "id")
	if !ok {
		return
	}
	user := auth.CurrentUser(c)

	deleted, err := h.reviews.Delete(c.Request.Context(), reviewID, user.ID)
	if err != nil {
		slog.Error("Failed to delete review", "review_id", reviewID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete review"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review deleted"})
}

// Like handles POST /api/v1/reviews/:id/like
func (h *ReviewHandler) Like(c *gin.Context) {
	reviewID, ok := pathID(c, "id")
	if !ok {
		return
	}
	user := auth.CurrentUser(c)

	review, err := h.reviews.FindByID(c.Request.Context(), reviewID, user.ID)
	if err != nil {
		slog.Error("Failed to load review", "review_id", reviewID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to like review"})
		return
	}
	if review == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return
	}

	liked, err := h.reviews.Like(c.Request.Context(), user.ID, reviewID)
	if err != nil {
		slog.Error("Failed to like review", "review_id", reviewID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to like review"})
		return
	}

	// Notify only on the first like, repeats are no-ops
	if liked {
		if err := h.notifications.Notify(c.Request.Context(), &models.Notification{
			RecipientID: review.UserID,
			ActorID:     user.ID,
			Type:        models.NotificationLike,
			ReviewID:    &reviewID,
		}); err != nil {
			slog.Warn("Failed to create like notification", "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Liked"})
}

// Unlike handles DELETE /api/v1/reviews/:id/like
func (h *ReviewHandler) Unlike(c *gin.Context) {
	reviewID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.reviews.Unlike(c.Request.Context(), auth.CurrentUser(c).ID, reviewID); err != nil {
		slog.Error("Failed to unlike review", "review_id", reviewID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unlike review"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unliked"})
}

// ListComments handles GET /api/v1/reviews/:id/comments
func (h *ReviewHandler) ListComments(c *gin.Context) {
	reviewID, ok := pathID(c, "id")
	if !ok {
		return
	}
	comments, err := h.comments.ListByReview(c.Request.Context(), reviewID, viewerID(c))
	if err != nil {
		slog.Error("Failed to list comments", "review_id", reviewID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load comments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// CreateComment handles POST /api/v1/reviews/:id/comments
func (h *ReviewHandler) CreateComment(c *gin.Context) {
	reviewID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	user := auth.CurrentUser(c)

	review, err := h.reviews.FindByID(c.Request.Context(), reviewID, user.ID)
	if err != nil {
		slog.Error("Failed to load review", "review_id", reviewID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to comment"})
		return
	}
	if review == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return
	}

	// Replies nest one level: replying to a reply attaches to its parent
	notifyID := review.UserID
	notifyType := models.NotificationComment
	if req.ParentID != nil {
		parent, err := h.comments.FindByID(c.Request.Context(), *req.ParentID)
		if err != nil || parent == nil || parent.ReviewID != reviewID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parent comment"})
			return
		}
		if parent.IsReply() {
			req.ParentID = parent.ParentID
		}
		notifyID = parent.UserID
		notifyType = models.NotificationReply
	}

	comment := &models.Comment{
		ReviewID: reviewID,
		UserID:   user.ID,
		ParentID: req.ParentID,
		Text:     req.Text,
	}
	if err := h.comments.Create(c.Request.Context(), comment); err != nil {
		slog.Error("Failed to create comment", "review_id", reviewID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to comment"})
		return
	}

	if err := h.notifications.Notify(c.Request.Context(), &models.Notification{
		RecipientID: notifyID,
		ActorID:     user.ID,
		Type:        notifyType,
		ReviewID:    &reviewID,
		CommentID:   &comment.ID,
	}); err != nil {
		slog.Warn("Failed to create comment notification", "error", err)
	}

	comment.Username = user.Username
	c.JSON(http.StatusCreated, comment)
}

// DeleteComment handles DELETE /api/v1/comments/:id
func (h *ReviewHandler) DeleteComment(c *gin.Context) {
	commentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.comments.Delete(c.Request.Context(), commentID, auth.CurrentUser(c).ID)
	if err != nil {
		slog.Error("Failed to delete comment", "comment_id", commentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}

// LikeComment handles POST /api/v1/comments/:id/like
func (h *ReviewHandler) LikeComment(c *gin.Context) {
	commentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.comments.Like(c.Request.Context(), auth.CurrentUser(c).ID, commentID); err != nil {
		slog.Error("Failed to like comment", "comment_id", commentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to like comment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Liked"})
}

// UnlikeComment handles DELETE /api/v1/comments/:id/like
func (h *ReviewHandler) UnlikeComment(c *gin.Context) {
	commentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.comments.Unlike(c.Request.Context(), auth.CurrentUser(c).ID, commentID); err != nil {
		slog.Error("Failed to unlike comment", "comment_id", commentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unlike comment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unliked"})
}

// viewerID returns the authenticated user's ID, or zero for anonymous
func viewerID(c *gin.Context) int64 {
	if user := auth.CurrentUser(c); user != nil {
		return user.ID
	}
	return 0
}
