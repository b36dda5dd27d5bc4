package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"soundscore/internal/auth"
	"soundscore/internal/models"
	"soundscore/internal/repositories"
	"soundscore/internal/services"
)

// UpdateProfileRequest is the profile edit payload
type UpdateProfileRequest struct {
	Bio *string `json:"bio"`
}

// UserHandler handles profiles, the follow graph and profile images
type UserHandler struct {
	users         repositories.UserRepository
	storage       *services.StorageService
	notifications *services.NotificationService
}

// NewUserHandler creates a new user handler. storage may be nil when the
// integration is not configured.
func NewUserHandler(users repositories.UserRepository, storage *services.StorageService, notifications *services.NotificationService) *UserHandler {
	return &UserHandler{users: users, storage: storage, notifications: notifications}
}

// GetProfile handles GET /api/v1/users/:id
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var viewerID int64
	if viewer := auth.CurrentUser(c); viewer != nil {
		viewerID = viewer.ID
	}

	profile, err := h.users.Profile(c.Request.Context(), userID, viewerID)
	if err != nil {
		slog.Error("Failed to load profile", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateMe handles PATCH /api/v1/users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user := auth.CurrentUser(c)
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}

	if err := h.users.Update(c.Request.Context(), user); err != nil {
		slog.Error("Failed to update profile", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Search handles GET /api/v1/users/search?q=
func (h *UserHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter q is required"})
		return
	}
	limit, _ := pagination(c)

	users, err := h.users.Search(c.Request.Context(), query, limit)
	if err != nil {
		slog.Error("User search failed", "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	profiles := make([]models.PublicProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.PublicProfile())
	}
	c.JSON(http.StatusOK, gin.H{"users": profiles})
}

// Follow handles POST /api/v1/users/:id/follow
func (h *UserHandler) Follow(c *gin.Context) {
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	user := auth.CurrentUser(c)

	if targetID == user.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot follow yourself"})
		return
	}

	target, err := h.users.FindByID(c.Request.Context(), targetID)
	if err != nil {
		slog.Error("Failed to look up user", "user_id", targetID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to follow"})
		return
	}
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := h.users.Follow(c.Request.Context(), user.ID, targetID); err != nil {
		slog.Error("Failed to follow", "follower", user.ID, "followed", targetID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to follow"})
		return
	}

	if err := h.notifications.Notify(c.Request.Context(), &models.Notification{
		RecipientID: targetID,
		ActorID:     user.ID,
		Type:        models.NotificationFollow,
	}); err != nil {
		slog.Warn("Failed to create follow notification", "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Following"})
}

// Unfollow handles DELETE /api/v1/users/:id/follow
func (h *UserHandler) Unfollow(c *gin.Context) {
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	user := auth.CurrentUser(c)

	if err := h.users.Unfollow(c.Request.Context(), user.ID, targetID); err != nil {
		slog.Error("Failed to unfollow", "follower", user.ID, "followed", targetID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unfollow"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unfollowed"})
}

// Followers handles GET /api/v1/users/:id/followers
func (h *UserHandler) Followers(c *gin.Context) {
	h.listFollowUsers(c, h.users.Followers)
}

// Following handles GET /api/v1/users/:id/following
func (h *UserHandler) Following(c *gin.Context) {
	h.listFollowUsers(c, h.users.Following)
}

func (h *UserHandler) listFollowUsers(c *gin.Context, list func(ctx context.Context, userID int64, limit, offset int) ([]*models.User, error)) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, offset := pagination(c)

	users, err := list(c.Request.Context(), userID, limit, offset)
	if err != nil {
		slog.Error("Failed to list follow users", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	profiles := make([]models.PublicProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.PublicProfile())
	}
	c.JSON(http.StatusOK, gin.H{"users": profiles})
}

// UploadProfilePicture handles POST /api/v1/users/me/profile-picture
func (h *UserHandler) UploadProfilePicture(c *gin.Context) {
	h.uploadImage(c, services.BucketProfilePictures, func(u *models.User, url string) { u.ProfilePictureURL = url })
}

// UploadBanner handles POST /api/v1/users/me/banner
func (h *UserHandler) UploadBanner(c *gin.Context) {
	h.uploadImage(c, services.BucketBannerImages, func(u *models.User, url string) { u.BannerImageURL = url })
}

func (h *UserHandler) uploadImage(c *gin.Context, bucket string, apply func(*models.User, string)) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image uploads are not configured"})
		return
	}
	user := auth.CurrentUser(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := h.storage.ValidateUpload(header.Size, contentType); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	path, err := h.storage.Upload(c.Request.Context(), bucket, user.ID, header.Filename, contentType, data)
	if err != nil {
		slog.Error("Upload failed", "bucket", bucket, "user_id", user.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upload failed"})
		return
	}

	url, err := h.storage.SignedURL(c.Request.Context(), bucket, path)
	if err != nil {
		slog.Error("Failed to sign uploaded image", "bucket", bucket, "path", path, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upload failed"})
		return
	}

	apply(user, url)
	if err := h.users.Update(c.Request.Context(), user); err != nil {
		slog.Error("Failed to save image URL", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
