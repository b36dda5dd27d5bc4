package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"soundscore/internal/auth"
	"soundscore/internal/cache"
	"soundscore/internal/models"
	"soundscore/internal/repositories"
	"soundscore/internal/services"
)

// popularWindow is the lookback for popular reviews and albums
const popularWindow = 7 * 24 * time.Hour

// HomeHandler serves the feed and the home page rails
type HomeHandler struct {
	reviews         repositories.ReviewRepository
	albums          repositories.AlbumRepository
	recommendations *services.RecommendationService
	cache           cache.Cache
}

// NewHomeHandler creates a new home handler
func NewHomeHandler(reviews repositories.ReviewRepository, albums repositories.AlbumRepository,
	recommendations *services.RecommendationService, c cache.Cache) *HomeHandler {
	return &HomeHandler{
		reviews:         reviews,
		albums:          albums,
		recommendations: recommendations,
		cache:           c,
	}
}

// Feed handles GET /api/v1/feed, reviews from followed users newest first
func (h *HomeHandler) Feed(c *gin.Context) {
	user := auth.CurrentUser(c)
	limit, offset := pagination(c)

	reviews, err := h.reviews.Feed(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		slog.Error("Failed to load feed", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load feed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// Home handles GET /api/v1/home, the logged-in landing page rails
func (h *HomeHandler) Home(c *gin.Context) {
	user := auth.CurrentUser(c)
	ctx := c.Request.Context()
	since := time.Now().Add(-popularWindow)

	popularReviews, err := h.reviews.PopularSince(ctx, since, user.ID, 10)
	if err != nil {
		slog.Error("Failed to load popular reviews", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load home"})
		return
	}

	popularAlbums, err := h.popularAlbums(c, since)
	if err != nil {
		slog.Error("Failed to load popular albums", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load home"})
		return
	}

	suggestions, err := h.recommendations.SuggestUsers(ctx, user.ID, 10)
	if err != nil {
		// Suggestions are a rail, not the page
		slog.Warn("Failed to load suggestions", "user_id", user.ID, "error", err)
		suggestions = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"popular_reviews": popularReviews,
		"popular_albums":  popularAlbums,
		"suggested_users": suggestions,
	})
}

// SuggestedUsers handles GET /api/v1/users/suggestions
func (h *HomeHandler) SuggestedUsers(c *gin.Context) {
	user := auth.CurrentUser(c)
	limit, _ := pagination(c)

	suggestions, err := h.recommendations.SuggestUsers(c.Request.Context(), user.ID, limit)
	if err != nil {
		slog.Error("Failed to load suggestions", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load suggestions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": suggestions})
}

// popularAlbums is shared across all users, so the list caches globally
func (h *HomeHandler) popularAlbums(c *gin.Context, since time.Time) ([]*models.Album, error) {
	ctx := c.Request.Context()
	key := cache.PopularAlbumsKey()

	var cached []*models.Album
	if found, err := cache.GetJSON(ctx, h.cache, key, &cached); err == nil && found {
		return cached, nil
	}

	albums, err := h.albums.PopularSince(ctx, since, 10)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, h.cache, key, albums, cache.RecommendationTTL); err != nil {
		slog.Warn("Failed to cache popular albums", "error", err)
	}
	return albums, nil
}
