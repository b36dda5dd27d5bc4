package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"soundscore/internal/auth"
	"soundscore/internal/cache"
	"soundscore/internal/models"
	"soundscore/internal/repositories"
	"soundscore/internal/services"
)

// statsWindowDays is the default listening stats lookback
const statsWindowDays = 30

// LibraryHandler handles listening history, stats and the Spotify link
type LibraryHandler struct {
	scrobbles   repositories.ScrobbleRepository
	accounts    repositories.OAuthRepository
	oauth       *services.OAuthService
	sync        *services.ScrobbleService
	appCache    cache.Cache
	frontendURL string
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(scrobbles repositories.ScrobbleRepository, accounts repositories.OAuthRepository,
	oauth *services.OAuthService, sync *services.ScrobbleService, appCache cache.Cache, frontendURL string) *LibraryHandler {
	return &LibraryHandler{
		scrobbles:   scrobbles,
		accounts:    accounts,
		oauth:       oauth,
		sync:        sync,
		appCache:    appCache,
		frontendURL: frontendURL,
	}
}

// ListScrobbles handles GET /api/v1/library/scrobbles
func (h *LibraryHandler) ListScrobbles(c *gin.Context) {
	user := auth.CurrentUser(c)
	limit, offset := pagination(c)

	scrobbles, err := h.scrobbles.ListByUser(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		slog.Error("Failed to list scrobbles", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load listening history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scrobbles": scrobbles})
}

// Stats handles GET /api/v1/library/stats?days=
func (h *LibraryHandler) Stats(c *gin.Context) {
	user := auth.CurrentUser(c)

	days, _ := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(statsWindowDays)))
	if days <= 0 || days > 365 {
		days = statsWindowDays
	}
	since := time.Now().AddDate(0, 0, -days)

	stats, err := h.scrobbles.Stats(c.Request.Context(), user.ID, since, 10)
	if err != nil {
		slog.Error("Failed to load listening stats", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// SyncNow handles POST /api/v1/library/sync, an on-demand pull
func (h *LibraryHandler) SyncNow(c *gin.Context) {
	user := auth.CurrentUser(c)

	inserted, err := h.sync.SyncUser(c.Request.Context(), user.ID)
	if err != nil {
		slog.Error("Manual scrobble sync failed", "user_id", user.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Sync failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"new_scrobbles": inserted})
}

// SpotifyStatus handles GET /api/v1/library/spotify
func (h *LibraryHandler) SpotifyStatus(c *gin.Context) {
	user := auth.CurrentUser(c)

	account, err := h.accounts.FindByUserAndProvider(c.Request.Context(), user.ID, models.OAuthProviderSpotify)
	if err != nil {
		slog.Error("Failed to load spotify link", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load link status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"linked": account != nil})
}

// LinkSpotify handles GET /api/v1/library/spotify/link. The state carries
// an access token so the callback can identify the user.
func (h *LibraryHandler) LinkSpotify(c *gin.Context) {
	url, err := h.oauth.SpotifyAuthURL(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Spotify linking is not configured"})
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// SpotifyCallback handles GET /api/v1/library/spotify/callback
func (h *LibraryHandler) SpotifyCallback(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Query("code")
		state := c.Query("state")
		if code == "" || state == "" {
			c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/settings?spotify=error")
			return
		}

		userID, err := tokens.Verify(state, auth.TokenTypeAccess)
		if err != nil {
			c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/settings?spotify=error")
			return
		}

		if _, err := h.oauth.LinkSpotify(c.Request.Context(), userID, code); err != nil {
			slog.Error("Spotify link failed", "user_id", userID, "error", err)
			c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/settings?spotify=error")
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/settings?spotify=linked")
	}
}

// UnlinkSpotify handles DELETE /api/v1/library/spotify
func (h *LibraryHandler) UnlinkSpotify(c *gin.Context) {
	user := auth.CurrentUser(c)

	removed, err := h.oauth.UnlinkSpotify(c.Request.Context(), user.ID)
	if err != nil {
		slog.Error("Failed to unlink spotify", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unlink"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "No linked account"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unlinked"})
}

// GoogleLogin handles GET /api/v1/auth/google. The state is a single-use
// nonce the callback has to return.
func (h *LibraryHandler) GoogleLogin(c *gin.Context) {
	nonce := uuid.NewString()
	if err := h.appCache.Set(c.Request.Context(), cache.OAuthStateKey(nonce), []byte("login"), cache.OAuthStateTTL); err != nil {
		slog.Error("Failed to store oauth state", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google login failed"})
		return
	}

	url, err := h.oauth.GoogleAuthURL(nonce)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google login is not configured"})
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// consumeOAuthState verifies and burns a state nonce
func (h *LibraryHandler) consumeOAuthState(c *gin.Context, state string) bool {
	if state == "" {
		return false
	}
	key := cache.OAuthStateKey(state)
	data, err := h.appCache.Get(c.Request.Context(), key)
	if err != nil || data == nil {
		return false
	}
	if err := h.appCache.Delete(c.Request.Context(), key); err != nil {
		slog.Warn("Failed to delete oauth state", "error", err)
	}
	return true
}

// GoogleCallback handles GET /api/v1/auth/google/callback. On success the
// frontend receives the token pair via redirect fragment.
func (h *LibraryHandler) GoogleCallback(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Query("code")
		if code == "" || !h.consumeOAuthState(c, c.Query("state")) {
			c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/login?error=google")
			return
		}

		user, err := h.oauth.LoginWithGoogle(c.Request.Context(), code)
		if err != nil || user == nil {
			slog.Error("Google login failed", "error", err)
			c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/login?error=google")
			return
		}

		pair, err := tokens.IssuePair(user.ID)
		if err != nil {
			slog.Error("Failed to issue tokens", "user_id", user.ID, "error", err)
			c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/login?error=google")
			return
		}
		c.Redirect(http.StatusTemporaryRedirect,
			h.frontendURL+"/login#access_token="+pair.AccessToken+"&refresh_token="+pair.RefreshToken)
	}
}
