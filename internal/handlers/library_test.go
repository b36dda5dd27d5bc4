package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundscore/internal/auth"
	"soundscore/internal/cache"
	"soundscore/internal/services"
	"soundscore/internal/testutil"
)

type libraryHandlerFixture struct {
	scrobbles *testutil.MockScrobbleRepository
	accounts  *testutil.MockOAuthRepository
	appCache  *testutil.MemoryCache
	handler   *LibraryHandler
}

func newLibraryHandlerFixture() *libraryHandlerFixture {
	f := &libraryHandlerFixture{
		scrobbles: new(testutil.MockScrobbleRepository),
		accounts:  new(testutil.MockOAuthRepository),
		appCache:  testutil.NewMemoryCache(),
	}
	googleCfg := services.GoogleOAuthConfig("client-id", "client-secret", "http://localhost/api/v1/auth/google/callback")
	oauth := services.NewOAuthService(nil, googleCfg, f.accounts, new(testutil.MockUserRepository))
	f.handler = NewLibraryHandler(f.scrobbles, f.accounts, oauth, nil, f.appCache, "http://front.example")
	return f
}

func TestGoogleLoginIssuesStateNonce(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newLibraryHandlerFixture()

	router := gin.New()
	router.GET("/auth/google", f.handler.GoogleLogin)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/auth/google", nil)
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusTemporaryRedirect, recorder.Code)

	location, err := url.Parse(recorder.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)
	assert.NotEqual(t, "login", state, "state must be unpredictable")

	data, err := f.appCache.Get(req.Context(), cache.OAuthStateKey(state))
	require.NoError(t, err)
	assert.NotNil(t, data, "issued state must be stored for the callback")
}

func TestGoogleCallbackRejectsUnknownState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newLibraryHandlerFixture()
	tokens := auth.NewTokenService("test-secret", time.Hour, 24*time.Hour, time.Hour)

	router := gin.New()
	router.GET("/auth/google/callback", f.handler.GoogleCallback(tokens))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/auth/google/callback?code=abc&state=forged", nil)
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusTemporaryRedirect, recorder.Code)
	assert.Equal(t, "http://front.example/login?error=google", recorder.Header().Get("Location"))
}

func TestConsumeOAuthStateIsSingleUse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newLibraryHandlerFixture()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)

	require.NoError(t, f.appCache.Set(c.Request.Context(), cache.OAuthStateKey("nonce-1"), []byte("login"), cache.OAuthStateTTL))

	assert.True(t, f.handler.consumeOAuthState(c, "nonce-1"))
	assert.False(t, f.handler.consumeOAuthState(c, "nonce-1"), "a state nonce must not be replayable")
	assert.False(t, f.handler.consumeOAuthState(c, ""))
}
