package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"soundscore/internal/models"
	"soundscore/internal/repositories"
)

// maxRecentlyPlayed is the largest page Spotify serves for recently played
const maxRecentlyPlayed = 50

// ScrobbleService pulls recently played tracks from Spotify into the
// listening history.
type ScrobbleService struct {
	client    *resty.Client
	oauth     *OAuthService
	accounts  repositories.OAuthRepository
	scrobbles repositories.ScrobbleRepository
	apiURL    string
}

// NewScrobbleService creates a new scrobble service
func NewScrobbleService(oauth *OAuthService, accounts repositories.OAuthRepository, scrobbles repositories.ScrobbleRepository) *ScrobbleService {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &ScrobbleService{
		client:    client,
		oauth:     oauth,
		accounts:  accounts,
		scrobbles: scrobbles,
		apiURL:    spotifyAPIURL,
	}
}

// SyncUser pulls the user's recently played tracks and stores new ones.
// Returns the number of new scrobbles.
func (s *ScrobbleService) SyncUser(ctx context.Context, userID int64) (int, error) {
	account, err := s.accounts.FindByUserAndProvider(ctx, userID, models.OAuthProviderSpotify)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, &PlatformError{Platform: "spotify", Operation: "scrobble_sync", Message: "no linked spotify account"}
	}
	return s.syncAccount(ctx, account)
}

// SyncAll pulls recently played for every linked Spotify account. One
// failing account does not stop the rest.
func (s *ScrobbleService) SyncAll(ctx context.Context) (int, error) {
	accounts, err := s.accounts.ListByProvider(ctx, models.OAuthProviderSpotify)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, account := range accounts {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		inserted, err := s.syncAccount(ctx, account)
		if err != nil {
			slog.Warn("Scrobble sync failed for user", "user_id", account.UserID, "error", err)
			continue
		}
		total += inserted
	}
	return total, nil
}

func (s *ScrobbleService) syncAccount(ctx context.Context, account *models.OAuthAccount) (int, error) {
	token, err := s.oauth.FreshSpotifyToken(ctx, account)
	if err != nil {
		return 0, err
	}

	// Only ask Spotify for plays after the last one we stored.
	var after *time.Time
	latest, err := s.scrobbles.LatestPlayedAt(ctx, account.UserID)
	if err != nil {
		return 0, err
	}
	if latest != nil {
		after = latest
	}

	items, err := s.recentlyPlayed(ctx, token, after)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	scrobbles := make([]*models.Scrobble, 0, len(items))
	for _, item := range items {
		playedAt, err := time.Parse(time.RFC3339, item.PlayedAt)
		if err != nil {
			slog.Warn("Skipping scrobble with bad timestamp", "played_at", item.PlayedAt)
			continue
		}
		scrobbles = append(scrobbles, &models.Scrobble{
			UserID:         account.UserID,
			TrackName:      item.Track.Name,
			ArtistName:     item.Track.artistName(),
			AlbumName:      item.Track.Album.Name,
			SpotifyTrackID: item.Track.ID,
			PlayedAt:       playedAt,
		})
	}

	inserted, err := s.scrobbles.InsertBatch(ctx, scrobbles)
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		slog.Info("Scrobbles synced", "user_id", account.UserID, "new", inserted)
	}
	return inserted, nil
}

type recentlyPlayedTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name string `json:"name"`
	} `json:"album"`
}

func (t *recentlyPlayedTrack) artistName() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

type recentlyPlayedItem struct {
	Track    recentlyPlayedTrack `json:"track"`
	PlayedAt string              `json:"played_at"`
}

type recentlyPlayedResponse struct {
	Items []recentlyPlayedItem `json:"items"`
}

func (s *ScrobbleService) recentlyPlayed(ctx context.Context, accessToken string, after *time.Time) ([]recentlyPlayedItem, error) {
	params := map[string]string{"limit": strconv.Itoa(maxRecentlyPlayed)}
	if after != nil {
		params["after"] = strconv.FormatInt(after.UnixMilli(), 10)
	}

	var result recentlyPlayedResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetQueryParams(params).
		SetResult(&result).
		Get(s.apiURL + "/me/player/recently-played")
	if err != nil {
		return nil, &PlatformError{Platform: "spotify", Operation: "recently_played", Message: "request failed", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &PlatformError{
			Platform:  "spotify",
			Operation: "recently_played",
			Message:   fmt.Sprintf("API returned status %d", resp.StatusCode()),
		}
	}
	return result.Items, nil
}
