package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"soundscore/internal/models"
	"soundscore/internal/testutil"
)

func spotifyAccount(userID int64, expiresAt time.Time) *models.OAuthAccount {
	return &models.OAuthAccount{
		ID:             11,
		UserID:         userID,
		Provider:       models.OAuthProviderSpotify,
		ProviderUserID: "sp-user",
		AccessToken:    "stored-token",
		RefreshToken:   "stored-refresh",
		TokenExpiresAt: expiresAt,
	}
}

func recentlyPlayedBody(items ...map[string]any) []byte {
	body, _ := json.Marshal(map[string]any{"items": items})
	return body
}

func playedItem(trackID, name, playedAt string) map[string]any {
	return map[string]any{
		"track": map[string]any{
			"id":      trackID,
			"name":    name,
			"artists": []map[string]any{{"name": "Test Artist"}},
			"album":   map[string]any{"name": "Test Album"},
		},
		"played_at": playedAt,
	}
}

func TestSyncUserPullsRecentlyPlayed(t *testing.T) {
	ctx := context.Background()
	latest := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	var gotAuth, gotAfter, gotLimit string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/me/player/recently-played", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotAfter = r.URL.Query().Get("after")
		gotLimit = r.URL.Query().Get("limit")

		w.Header().Set("Content-Type", "application/json")
		w.Write(recentlyPlayedBody(
			playedItem("t1", "Track One", "2026-08-21T09:00:00Z"),
			playedItem("t2", "Track Two", "not-a-timestamp"),
			playedItem("t3", "Track Three", "2026-08-21T10:30:00Z"),
		))
	}))
	defer api.Close()

	accounts := new(testutil.MockOAuthRepository)
	scrobbles := new(testutil.MockScrobbleRepository)

	// Token still fresh, so no refresh round-trip happens
	accounts.On("FindByUserAndProvider", mock.Anything, int64(1), models.OAuthProviderSpotify).
		Return(spotifyAccount(1, time.Now().Add(time.Hour)), nil)
	scrobbles.On("LatestPlayedAt", mock.Anything, int64(1)).Return(&latest, nil)

	var stored []*models.Scrobble
	scrobbles.On("InsertBatch", mock.Anything, mock.AnythingOfType("[]*models.Scrobble")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).([]*models.Scrobble)
		}).Return(2, nil)

	oauth := NewOAuthService(nil, nil, accounts, nil)
	svc := NewScrobbleService(oauth, accounts, scrobbles)
	svc.apiURL = api.URL

	inserted, err := svc.SyncUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	assert.Equal(t, "Bearer stored-token", gotAuth)
	assert.Equal(t, strconv.FormatInt(latest.UnixMilli(), 10), gotAfter)
	assert.Equal(t, "50", gotLimit)

	// The unparseable play is skipped, the rest keep their order
	require.Len(t, stored, 2)
	assert.Equal(t, "t1", stored[0].SpotifyTrackID)
	assert.Equal(t, "t3", stored[1].SpotifyTrackID)
	assert.Equal(t, int64(1), stored[0].UserID)
	assert.Equal(t, "Test Artist", stored[0].ArtistName)
}

func TestSyncUserRefreshesExpiredToken(t *testing.T) {
	ctx := context.Background()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh-token",
			"refresh_token": "fresh-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer tokenServer.Close()

	var gotAuth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write(recentlyPlayedBody())
	}))
	defer api.Close()

	accounts := new(testutil.MockOAuthRepository)
	scrobbles := new(testutil.MockScrobbleRepository)

	expired := spotifyAccount(1, time.Now().Add(-time.Hour))
	accounts.On("FindByUserAndProvider", mock.Anything, int64(1), models.OAuthProviderSpotify).
		Return(expired, nil)
	accounts.On("UpdateTokens", mock.Anything, int64(11), "fresh-token", "fresh-refresh", mock.AnythingOfType("time.Time")).
		Return(nil)
	scrobbles.On("LatestPlayedAt", mock.Anything, int64(1)).Return(nil, nil)

	spotifyCfg := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenServer.URL + "/token"},
	}
	oauth := NewOAuthService(spotifyCfg, nil, accounts, nil)
	svc := NewScrobbleService(oauth, accounts, scrobbles)
	svc.apiURL = api.URL

	inserted, err := svc.SyncUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	// The pull runs with the refreshed token, and the new pair is persisted
	assert.Equal(t, "Bearer fresh-token", gotAuth)
	accounts.AssertExpectations(t)
	scrobbles.AssertNotCalled(t, "InsertBatch", mock.Anything, mock.Anything)
}

func TestSyncAllContinuesPastFailingAccounts(t *testing.T) {
	ctx := context.Background()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(recentlyPlayedBody(playedItem("t1", "Track One", "2026-08-21T09:00:00Z")))
	}))
	defer api.Close()

	accounts := new(testutil.MockOAuthRepository)
	scrobbles := new(testutil.MockScrobbleRepository)

	// First account cannot refresh, second one works
	broken := spotifyAccount(1, time.Now().Add(-time.Hour))
	broken.RefreshToken = ""
	healthy := spotifyAccount(2, time.Now().Add(time.Hour))
	healthy.UserID = 2

	accounts.On("ListByProvider", mock.Anything, models.OAuthProviderSpotify).
		Return([]*models.OAuthAccount{broken, healthy}, nil)
	scrobbles.On("LatestPlayedAt", mock.Anything, int64(2)).Return(nil, nil)
	scrobbles.On("InsertBatch", mock.Anything, mock.AnythingOfType("[]*models.Scrobble")).Return(1, nil)

	spotifyCfg := &oauth2.Config{ClientID: "client-id"}
	oauth := NewOAuthService(spotifyCfg, nil, accounts, nil)
	svc := NewScrobbleService(oauth, accounts, scrobbles)
	svc.apiURL = api.URL

	total, err := svc.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
