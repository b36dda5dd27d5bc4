package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2/clientcredentials"

	"soundscore/internal/cache"
)

// Spotify API endpoints
const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyAPIURL   = "https://api.spotify.com/v1"
)

// SpotifyCatalog is the read-only catalog surface backed by the Spotify
// Web API with app (client credentials) auth.
type SpotifyCatalog interface {
	SearchAlbums(ctx context.Context, query string, limit int) ([]*SpotifyAlbum, error)
	SearchArtists(ctx context.Context, query string, limit int) ([]*SpotifyArtist, error)
	GetAlbum(ctx context.Context, spotifyID string) (*SpotifyAlbum, error)
	GetArtist(ctx context.Context, spotifyID string) (*SpotifyArtist, error)
	Health(ctx context.Context) error
}

// spotifyService implements SpotifyCatalog
type spotifyService struct {
	client      *resty.Client
	tokenSource *clientcredentials.Config
	cache       cache.Cache
	accessToken string
	tokenExpiry time.Time
	mu          sync.RWMutex
}

// NewSpotifyService creates a new Spotify catalog service
func NewSpotifyService(clientID, clientSecret string, c cache.Cache) SpotifyCatalog {
	tokenSource := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyTokenURL,
	}

	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &spotifyService{
		client:      client,
		tokenSource: tokenSource,
		cache:       c,
	}
}

// SearchAlbums searches the Spotify catalog for albums
func (s *spotifyService) SearchAlbums(ctx context.Context, query string, limit int) ([]*SpotifyAlbum, error) {
	limit = clampLimit(limit)
	key := cache.SpotifySearchKey("album", query, limit)

	var cached []*SpotifyAlbum
	if found, err := cache.GetJSON(ctx, s.cache, key, &cached); err == nil && found {
		return cached, nil
	}

	var result spotifySearchResult
	if err := s.get(ctx, "/search", map[string]string{
		"q":     query,
		"type":  "album",
		"limit": strconv.Itoa(limit),
	}, &result, "search_albums"); err != nil {
		return nil, err
	}

	albums := make([]*SpotifyAlbum, 0, len(result.Albums.Items))
	for i := range result.Albums.Items {
		albums = append(albums, &result.Albums.Items[i])
	}

	if err := cache.SetJSON(ctx, s.cache, key, albums, cache.SpotifySearchTTL); err != nil {
		slog.Warn("Failed to cache album search", "query", query, "error", err)
	}
	return albums, nil
}

// SearchArtists searches the Spotify catalog for artists
func (s *spotifyService) SearchArtists(ctx context.Context, query string, limit int) ([]*SpotifyArtist, error) {
	limit = clampLimit(limit)
	key := cache.SpotifySearchKey("artist", query, limit)

	var cached []*SpotifyArtist
	if found, err := cache.GetJSON(ctx, s.cache, key, &cached); err == nil && found {
		return cached, nil
	}

	var result spotifySearchResult
	if err := s.get(ctx, "/search", map[string]string{
		"q":     query,
		"type":  "artist",
		"limit": strconv.Itoa(limit),
	}, &result, "search_artists"); err != nil {
		return nil, err
	}

	artists := make([]*SpotifyArtist, 0, len(result.Artists.Items))
	for i := range result.Artists.Items {
		artists = append(artists, &result.Artists.Items[i])
	}

	if err := cache.SetJSON(ctx, s.cache, key, artists, cache.SpotifySearchTTL); err != nil {
		slog.Warn("Failed to cache artist search", "query", query, "error", err)
	}
	return artists, nil
}

// GetAlbum fetches one album by Spotify ID
func (s *spotifyService) GetAlbum(ctx context.Context, spotifyID string) (*SpotifyAlbum, error) {
	key := cache.SpotifyAlbumKey(spotifyID)

	var cached SpotifyAlbum
	if found, err := cache.GetJSON(ctx, s.cache, key, &cached); err == nil && found {
		return &cached, nil
	}

	var album SpotifyAlbum
	if err := s.get(ctx, "/albums/"+spotifyID, nil, &album, "get_album"); err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, s.cache, key, &album, cache.SpotifyLookupTTL); err != nil {
		slog.Warn("Failed to cache album", "spotify_id", spotifyID, "error", err)
	}
	return &album, nil
}

// GetArtist fetches one artist by Spotify ID
func (s *spotifyService) GetArtist(ctx context.Context, spotifyID string) (*SpotifyArtist, error) {
	key := cache.SpotifyArtistKey(spotifyID)

	var cached SpotifyArtist
	if found, err := cache.GetJSON(ctx, s.cache, key, &cached); err == nil && found {
		return &cached, nil
	}

	var artist SpotifyArtist
	if err := s.get(ctx, "/artists/"+spotifyID, nil, &artist, "get_artist"); err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, s.cache, key, &artist, cache.SpotifyLookupTTL); err != nil {
		slog.Warn("Failed to cache artist", "spotify_id", spotifyID, "error", err)
	}
	return &artist, nil
}

// Health checks Spotify API reachability
func (s *spotifyService) Health(ctx context.Context) error {
	return s.ensureValidToken(ctx)
}

// get performs an authenticated GET against the Spotify API
func (s *spotifyService) get(ctx context.Context, path string, params map[string]string, result any, operation string) error {
	if err := s.ensureValidToken(ctx); err != nil {
		return err
	}

	s.mu.RLock()
	token := s.accessToken
	s.mu.RUnlock()

	req := s.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(result)
	if params != nil {
		req.SetQueryParams(params)
	}

	resp, err := req.Get(spotifyAPIURL + path)
	if err != nil {
		return &PlatformError{
			Platform:  "spotify",
			Operation: operation,
			Message:   "request failed",
			Err:       err,
		}
	}

	if resp.StatusCode() == http.StatusNotFound {
		return &PlatformError{
			Platform:  "spotify",
			Operation: operation,
			Message:   "not found",
		}
	}

	if resp.StatusCode() != http.StatusOK {
		return &PlatformError{
			Platform:  "spotify",
			Operation: operation,
			Message:   fmt.Sprintf("API returned status %d", resp.StatusCode()),
		}
	}

	return nil
}

// ensureValidToken ensures we have a valid app access token
func (s *spotifyService) ensureValidToken(ctx context.Context) error {
	s.mu.RLock()
	if s.accessToken != "" && time.Now().Before(s.tokenExpiry) {
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if s.accessToken != "" && time.Now().Before(s.tokenExpiry) {
		return nil
	}

	token, err := s.tokenSource.Token(ctx)
	if err != nil {
		return &PlatformError{
			Platform:  "spotify",
			Operation: "auth",
			Message:   "failed to get access token",
			Err:       err,
		}
	}

	s.accessToken = token.AccessToken
	s.tokenExpiry = token.Expiry

	slog.Info("Spotify access token refreshed", "expires_at", token.Expiry)

	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > 50 {
		return 50 // Spotify API limit
	}
	return limit
}

// Spotify API response structures

type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Artists     []SpotifyArtist `json:"artists"`
	Images      []SpotifyImage  `json:"images"`
	Genres      []string        `json:"genres"`
}

type SpotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []SpotifyImage `json:"images"`
}

type SpotifyImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// CoverURL returns a medium-sized image when available
func (a *SpotifyAlbum) CoverURL() string {
	return pickImage(a.Images)
}

// ImageURL returns a medium-sized image when available
func (a *SpotifyArtist) ImageURL() string {
	return pickImage(a.Images)
}

// ArtistName returns the primary artist's display name
func (a *SpotifyAlbum) ArtistName() string {
	if len(a.Artists) == 0 {
		return ""
	}
	return a.Artists[0].Name
}

// pickImage prefers images between 300 and 640 pixels wide
func pickImage(images []SpotifyImage) string {
	if len(images) == 0 {
		return ""
	}
	url := images[0].URL
	for _, img := range images {
		if img.Width >= 300 && img.Width <= 640 {
			url = img.URL
			break
		}
	}
	return url
}

type spotifySearchResult struct {
	Albums  spotifyAlbumsPaging  `json:"albums"`
	Artists spotifyArtistsPaging `json:"artists"`
}

type spotifyAlbumsPaging struct {
	Items []SpotifyAlbum `json:"items"`
	Total int            `json:"total"`
}

type spotifyArtistsPaging struct {
	Items []SpotifyArtist `json:"items"`
	Total int             `json:"total"`
}
