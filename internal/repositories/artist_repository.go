package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"soundscore/internal/models"
)

// ArtistRepository defines the interface for artist catalog operations
type ArtistRepository interface {
	Upsert(ctx context.Context, artist *models.Artist) error
	FindByID(ctx context.Context, id int64) (*models.Artist, error)
	FindBySpotifyID(ctx context.Context, spotifyID string) (*models.Artist, error)
	SaveBio(ctx context.Context, artistID int64, bio string) error

	// Stats aggregates review data across all of the artist's albums
	Stats(ctx context.Context, artistID int64) (*models.ArtistStats, error)
}

var artistColumns = []string{
	"id", "spotify_id", "name", "image_url", "genres",
	"ai_bio", "bio_generated_at", "created_at",
}

// postgresArtistRepository implements ArtistRepository using Postgres
type postgresArtistRepository struct {
	db *models.Database
}

// NewPostgresArtistRepository creates a new Postgres-backed artist repository
func NewPostgresArtistRepository(db *models.Database) ArtistRepository {
	return &postgresArtistRepository{db: db}
}

func scanArtist(row pgx.Row) (*models.Artist, error) {
	var a models.Artist
	err := row.Scan(&a.ID, &a.SpotifyID, &a.Name, &a.ImageURL, &a.Genres,
		&a.AIBio, &a.BioGeneratedAt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan artist: %w", err)
	}
	return &a, nil
}

// Upsert inserts or refreshes an artist row keyed by Spotify ID
func (r *postgresArtistRepository) Upsert(ctx context.Context, artist *models.Artist) error {
	const query = `
		INSERT INTO artists (spotify_id, name, image_url, genres)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (spotify_id) DO UPDATE SET
			name = EXCLUDED.name,
			image_url = EXCLUDED.image_url,
			genres = EXCLUDED.genres
		RETURNING id, ai_bio, bio_generated_at, created_at`

	err := r.db.Pool.QueryRow(ctx, query,
		artist.SpotifyID, artist.Name, artist.ImageURL, artist.Genres).
		Scan(&artist.ID, &artist.AIBio, &artist.BioGeneratedAt, &artist.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert artist: %w", err)
	}
	return nil
}

// FindByID finds an artist by primary key
func (r *postgresArtistRepository) FindByID(ctx context.Context, id int64) (*models.Artist, error) {
	query, args, err := psql.Select(artistColumns...).
		From("artists").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build artist query: %w", err)
	}
	return scanArtist(r.db.Pool.QueryRow(ctx, query, args...))
}

// FindBySpotifyID finds an artist by its Spotify ID
func (r *postgresArtistRepository) FindBySpotifyID(ctx context.Context, spotifyID string) (*models.Artist, error) {
	query, args, err := psql.Select(artistColumns...).
		From("artists").Where(sq.Eq{"spotify_id": spotifyID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build artist query: %w", err)
	}
	return scanArtist(r.db.Pool.QueryRow(ctx, query, args...))
}

// Stats aggregates review data across the artist's catalog
func (r *postgresArtistRepository) Stats(ctx context.Context, artistID int64) (*models.ArtistStats, error) {
	const query = `
		SELECT COUNT(*), COALESCE(AVG(rv.rating), 0), COUNT(*) FILTER (WHERE rv.is_favorite)
		FROM reviews rv
		JOIN albums a ON a.id = rv.album_id
		WHERE a.artist_id = $1`

	stats := &models.ArtistStats{ArtistID: artistID}
	err := r.db.Pool.QueryRow(ctx, query, artistID).
		Scan(&stats.ReviewCount, &stats.AverageRating, &stats.FavoriteCount)
	if err != nil {
		return nil, fmt.Errorf("failed to query artist stats: %w", err)
	}
	return stats, nil
}

// SaveBio persists a generated artist biography
func (r *postgresArtistRepository) SaveBio(ctx context.Context, artistID int64, bio string) error {
	query, args, err := psql.Update("artists").
		Set("ai_bio", bio).
		Set("bio_generated_at", time.Now()).
		Where(sq.Eq{"id": artistID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build bio update: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update artist bio: %w", err)
	}
	return nil
}
