package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundscore/internal/auth"
	"soundscore/internal/cache"
	"soundscore/internal/testutil"
)

func TestLogout(t *testing.T) {
	ctx := context.Background()
	user := testutil.NewUserBuilder().WithID(7).Build()
	tokens := auth.NewTokenService("test-secret", time.Hour, 24*time.Hour, time.Hour)

	t.Run("evicts the cached session", func(t *testing.T) {
		appCache := testutil.NewMemoryCache()
		require.NoError(t, appCache.Set(ctx, cache.AuthUserKey(user.ID), []byte(`{"id":7}`), cache.AuthUserTTL))

		handler := NewAuthHandler(new(testutil.MockUserRepository), tokens, nil, appCache)
		h := testutil.NewHTTPTestHelper(t)
		router := gin.New()
		router.POST("/auth/logout", asUser(user), handler.Logout)
		h.SetRouter(router)

		recorder := h.PostJSON("/auth/logout", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)

		data, err := appCache.Get(ctx, cache.AuthUserKey(user.ID))
		require.NoError(t, err)
		assert.Nil(t, data, "cached user lookup must be gone after logout")
	})

	t.Run("succeeds when nothing is cached", func(t *testing.T) {
		handler := NewAuthHandler(new(testutil.MockUserRepository), tokens, nil, testutil.NewMemoryCache())
		h := testutil.NewHTTPTestHelper(t)
		router := gin.New()
		router.POST("/auth/logout", asUser(user), handler.Logout)
		h.SetRouter(router)

		recorder := h.PostJSON("/auth/logout", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}
