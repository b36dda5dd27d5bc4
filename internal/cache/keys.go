package cache

import (
	"fmt"
	"time"
)

// Key TTLs used across the application.
const (
	AuthUserTTL       = 120 * time.Second
	SignedURLTTL      = 45 * time.Minute
	SpotifySearchTTL  = time.Hour
	SpotifyLookupTTL  = 24 * time.Hour
	RecommendationTTL = 15 * time.Minute
	OAuthStateTTL     = 10 * time.Minute
)

// AuthUserKey caches the authenticated user lookup for bearer tokens.
func AuthUserKey(userID int64) string {
	return fmt.Sprintf("auth:user:%d", userID)
}

// SignedURLKey caches a storage signed URL for a bucket object.
func SignedURLKey(bucket, path string) string {
	return fmt.Sprintf("storage:signed:%s:%s", bucket, path)
}

// SpotifySearchKey caches catalog search responses.
func SpotifySearchKey(kind, query string, limit int) string {
	return fmt.Sprintf("spotify:search:%s:%s:%d", kind, query, limit)
}

// SpotifyAlbumKey caches album lookups by Spotify ID.
func SpotifyAlbumKey(spotifyID string) string {
	return "spotify:album:" + spotifyID
}

// SpotifyArtistKey caches artist lookups by Spotify ID.
func SpotifyArtistKey(spotifyID string) string {
	return "spotify:artist:" + spotifyID
}

// OAuthStateKey tracks an issued OAuth state nonce until the callback
// returns it.
func OAuthStateKey(nonce string) string {
	return "oauth:state:" + nonce
}

// RecommendationKey caches the who-to-follow list per user.
func RecommendationKey(userID int64) string {
	return fmt.Sprintf("recommend:users:%d", userID)
}

// PopularAlbumsKey caches the home page popular albums list.
func PopularAlbumsKey() string {
	return "home:popular_albums"
}
