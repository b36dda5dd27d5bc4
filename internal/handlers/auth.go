package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"soundscore/internal/auth"
	"soundscore/internal/cache"
	"soundscore/internal/models"
	"soundscore/internal/repositories"
	"soundscore/internal/services"
)

// RegisterRequest is the signup payload
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest is the password login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ForgotPasswordRequest starts a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest completes a password reset
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// AuthHandler handles registration, login and token lifecycle
type AuthHandler struct {
	users    repositories.UserRepository
	tokens   *auth.TokenService
	email    *services.EmailService
	appCache cache.Cache
}

// NewAuthHandler creates a new auth handler. email may be nil when the
// integration is not configured.
func NewAuthHandler(users repositories.UserRepository, tokens *auth.TokenService, email *services.EmailService, appCache cache.Cache) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, email: email, appCache: appCache}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := models.NewUser(req.Username, req.Email, hash)
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username or email already taken"})
			return
		}
		slog.Error("Failed to create user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	if h.email != nil {
		// Best effort, the account exists either way
		if err := h.email.SendWelcome(c.Request.Context(), user.Email, user.Username); err != nil {
			slog.Warn("Failed to send welcome email", "user_id", user.ID, "error", err)
		}
	}

	pair, err := h.tokens.IssuePair(user.ID)
	if err != nil {
		slog.Error("Failed to issue tokens", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue tokens"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user, "tokens": pair})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		slog.Error("Failed to look up user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	// Same response for unknown email and wrong password
	if user == nil || !user.HasPassword() || !auth.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	pair, err := h.tokens.IssuePair(user.ID)
	if err != nil {
		slog.Error("Failed to issue tokens", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "tokens": pair})
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	userID, err := h.tokens.Verify(req.RefreshToken, auth.TokenTypeRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	// The account may have been deleted since the token was issued
	user, err := h.users.FindByID(c.Request.Context(), userID)
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	pair, err := h.tokens.IssuePair(userID)
	if err != nil {
		slog.Error("Failed to issue tokens", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": pair})
}

// Logout handles POST /api/v1/auth/logout. Tokens are stateless, so
// logout evicts the cached user lookup; middleware hits the database on
// the next request with a still-valid token.
func (h *AuthHandler) Logout(c *gin.Context) {
	user := auth.CurrentUser(c)

	if h.appCache != nil {
		if err := h.appCache.Delete(c.Request.Context(), cache.AuthUserKey(user.ID)); err != nil {
			slog.Error("Failed to evict cached session", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, auth.CurrentUser(c))
}

// ForgotPassword handles POST /api/v1/auth/forgot-password. The response
// never reveals whether the email exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		slog.Error("Failed to look up user for reset", "error", err)
	}

	if user != nil && h.email != nil {
		token, err := h.tokens.IssuePasswordReset(user.ID)
		if err != nil {
			slog.Error("Failed to issue reset token", "user_id", user.ID, "error", err)
		} else if err := h.email.SendPasswordReset(c.Request.Context(), user.Email, token); err != nil {
			slog.Error("Failed to send reset email", "user_id", user.ID, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "If that email exists, a reset link has been sent"})
}

// ResetPassword handles POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	userID, err := h.tokens.Verify(req.Token, auth.TokenTypePasswordReset)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired reset token"})
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.UpdatePassword(c.Request.Context(), userID, hash); err != nil {
		slog.Error("Failed to update password", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
