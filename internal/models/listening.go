package models

import (
	"time"
)

// Scrobble records a single listen pulled from the user's connected
// streaming account. Duplicate pulls are deduped on
// (user, track, played_at).
type Scrobble struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	TrackName      string    `json:"track_name"`
	ArtistName     string    `json:"artist_name"`
	AlbumName      string    `json:"album_name,omitempty"`
	SpotifyTrackID string    `json:"spotify_track_id"`
	PlayedAt       time.Time `json:"played_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListeningStats summarizes a user's scrobbles over a period
type ListeningStats struct {
	TotalScrobbles int          `json:"total_scrobbles"`
	UniqueTracks   int          `json:"unique_tracks"`
	UniqueArtists  int          `json:"unique_artists"`
	TopArtists     []TopEntry   `json:"top_artists"`
	TopTracks      []TopEntry   `json:"top_tracks"`
	Since          time.Time    `json:"since"`
}

// TopEntry is one row of a top-artists or top-tracks ranking
type TopEntry struct {
	Name      string `json:"name"`
	PlayCount int    `json:"play_count"`
}

// ChatRole values stored in chat_messages.role
const (
	ChatRoleUser  = "user"
	ChatRoleModel = "model"
)

// ChatMessage is one turn of a user's assistant conversation history
type ChatMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
