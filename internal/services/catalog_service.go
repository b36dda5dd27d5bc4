package services

import (
	"context"
	"fmt"
	"log/slog"

	"soundscore/internal/models"
	"soundscore/internal/repositories"
)

// CatalogService resolves Spotify catalog entries into local album and
// artist rows. Local rows are created lazily the first time an album is
// reviewed or an artist page is opened.
type CatalogService struct {
	spotify SpotifyCatalog
	albums  repositories.AlbumRepository
	artists repositories.ArtistRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(spotify SpotifyCatalog, albums repositories.AlbumRepository, artists repositories.ArtistRepository) *CatalogService {
	return &CatalogService{
		spotify: spotify,
		albums:  albums,
		artists: artists,
	}
}

// ResolveAlbum returns the local album for a Spotify ID, creating it from
// the Spotify catalog when missing.
func (s *CatalogService) ResolveAlbum(ctx context.Context, spotifyID string) (*models.Album, error) {
	album, err := s.albums.FindBySpotifyID(ctx, spotifyID)
	if err != nil {
		return nil, err
	}
	if album != nil {
		return album, nil
	}

	spotifyAlbum, err := s.spotify.GetAlbum(ctx, spotifyID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve album %s: %w", spotifyID, err)
	}

	album = &models.Album{
		SpotifyID:   spotifyAlbum.ID,
		Title:       spotifyAlbum.Name,
		Artist:      spotifyAlbum.ArtistName(),
		CoverURL:    spotifyAlbum.CoverURL(),
		ReleaseDate: spotifyAlbum.ReleaseDate,
		Genres:      spotifyAlbum.Genres,
	}

	// Link the primary artist when we can resolve it; album creation
	// should not fail because the artist lookup did.
	if len(spotifyAlbum.Artists) > 0 {
		if artist, err := s.ResolveArtist(ctx, spotifyAlbum.Artists[0].ID); err == nil {
			album.ArtistID = &artist.ID
		} else {
			slog.Warn("Failed to resolve album artist",
				"album", spotifyAlbum.ID, "artist", spotifyAlbum.Artists[0].ID, "error", err)
		}
	}

	if err := s.albums.Upsert(ctx, album); err != nil {
		return nil, err
	}

	slog.Info("Album added to catalog", "spotify_id", album.SpotifyID, "title", album.Title)
	return album, nil
}

// ResolveArtist returns the local artist for a Spotify ID, creating it
// from the Spotify catalog when missing.
func (s *CatalogService) ResolveArtist(ctx context.Context, spotifyID string) (*models.Artist, error) {
	artist, err := s.artists.FindBySpotifyID(ctx, spotifyID)
	if err != nil {
		return nil, err
	}
	if artist != nil {
		return artist, nil
	}

	spotifyArtist, err := s.spotify.GetArtist(ctx, spotifyID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artist %s: %w", spotifyID, err)
	}

	artist = &models.Artist{
		SpotifyID: spotifyArtist.ID,
		Name:      spotifyArtist.Name,
		ImageURL:  spotifyArtist.ImageURL(),
		Genres:    spotifyArtist.Genres,
	}

	if err := s.artists.Upsert(ctx, artist); err != nil {
		return nil, err
	}

	slog.Info("Artist added to catalog", "spotify_id", artist.SpotifyID, "name", artist.Name)
	return artist, nil
}
