package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"soundscore/internal/models"
	"soundscore/internal/repositories"
)

// ContextUserKey is the gin context key holding the authenticated *models.User
const ContextUserKey = "auth_user"

// Middleware resolves bearer tokens to users. The user lookup goes through
// the cached repository so hot-path requests skip Postgres.
type Middleware struct {
	tokens *TokenService
	users  repositories.UserRepository
}

// NewMiddleware creates the auth middleware
func NewMiddleware(tokens *TokenService, users repositories.UserRepository) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// RequireUser rejects requests without a valid access token
func (m *Middleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := m.resolve(c, bearerToken(c))
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// OptionalUser attaches the user when a valid token is present but lets
// anonymous requests through.
func (m *Middleware) OptionalUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if user := m.resolve(c, token); user != nil {
				c.Set(ContextUserKey, user)
			}
		}
		c.Next()
	}
}

// RequireQueryToken authenticates from a token query parameter. SSE and
// WebSocket clients cannot set an Authorization header.
func (m *Middleware) RequireQueryToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := m.resolve(c, c.Query("token"))
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

func (m *Middleware) resolve(c *gin.Context, token string) *models.User {
	if token == "" {
		return nil
	}

	userID, err := m.tokens.Verify(token, TokenTypeAccess)
	if err != nil {
		return nil
	}

	user, err := m.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Failed to load authenticated user", "user_id", userID, "error", err)
		return nil
	}
	return user
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// CurrentUser returns the authenticated user set by the middleware
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ContextUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
