package models

import (
	"time"
)

// Album represents an album in the local catalog. Rows are created lazily
// the first time an album is reviewed or looked up.
type Album struct {
	ID        int64  `json:"id"`
	SpotifyID string `json:"spotify_id"`
	Title     string `json:"title"`

	// Artist is the display name; ArtistID links the local artist row
	// once it exists.
	Artist   string `json:"artist"`
	ArtistID *int64 `json:"artist_id,omitempty"`

	CoverURL    string     `json:"cover_url,omitempty"`
	ReleaseDate string     `json:"release_date,omitempty"`
	Genres      []string   `json:"genres,omitempty"`

	// AI-generated summary, refreshed when stale
	AISummary          string     `json:"ai_summary,omitempty"`
	SummaryGeneratedAt *time.Time `json:"summary_generated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// AlbumStats aggregates review data for an album page
type AlbumStats struct {
	AlbumID       int64   `json:"album_id"`
	ReviewCount   int     `json:"review_count"`
	AverageRating float64 `json:"average_rating"`
	FavoriteCount int     `json:"favorite_count"`
}

// ArtistStats aggregates review data across an artist's albums
type ArtistStats struct {
	ArtistID      int64   `json:"artist_id"`
	ReviewCount   int     `json:"review_count"`
	AverageRating float64 `json:"average_rating"`
	FavoriteCount int     `json:"favorite_count"`
}

// Artist represents an artist in the local catalog
type Artist struct {
	ID        int64  `json:"id"`
	SpotifyID string `json:"spotify_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url,omitempty"`
	Genres    []string `json:"genres,omitempty"`

	// AI-generated biography, refreshed when stale
	AIBio          string     `json:"ai_bio,omitempty"`
	BioGeneratedAt *time.Time `json:"bio_generated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// BioStale reports whether the AI biography should be regenerated
func (a *Artist) BioStale(maxAge time.Duration) bool {
	if a.AIBio == "" || a.BioGeneratedAt == nil {
		return true
	}
	return time.Since(*a.BioGeneratedAt) > maxAge
}

// SummaryStale reports whether the AI summary should be regenerated
func (a *Album) SummaryStale(maxAge time.Duration) bool {
	if a.AISummary == "" || a.SummaryGeneratedAt == nil {
		return true
	}
	return time.Since(*a.SummaryGeneratedAt) > maxAge
}
