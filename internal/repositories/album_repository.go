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

// AlbumRepository defines the interface for album catalog operations
type AlbumRepository interface {
	// Upsert inserts the album or refreshes catalog fields on conflict,
	// keyed by Spotify ID.
	Upsert(ctx context.Context, album *models.Album) error
	FindByID(ctx context.Context, id int64) (*models.Album, error)
	FindBySpotifyID(ctx context.Context, spotifyID string) (*models.Album, error)
	FindByArtistID(ctx context.Context, artistID int64) ([]*models.Album, error)
	Stats(ctx context.Context, albumID int64) (*models.AlbumStats, error)
	PopularSince(ctx context.Context, since time.Time, limit int) ([]*models.Album, error)
	SaveSummary(ctx context.Context, albumID int64, summary string) error
}

var albumColumns = []string{
	"id", "spotify_id", "title", "artist", "artist_id", "cover_url",
	"release_date", "genres", "ai_summary", "summary_generated_at", "created_at",
}

// postgresAlbumRepository implements AlbumRepository using Postgres
type postgresAlbumRepository struct {
	db *models.Database
}

// NewPostgresAlbumRepository creates a new Postgres-backed album repository
func NewPostgresAlbumRepository(db *models.Database) AlbumRepository {
	return &postgresAlbumRepository{db: db}
}

func scanAlbum(row pgx.Row) (*models.Album, error) {
	var a models.Album
	err := row.Scan(&a.ID, &a.SpotifyID, &a.Title, &a.Artist, &a.ArtistID,
		&a.CoverURL, &a.ReleaseDate, &a.Genres, &a.AISummary,
		&a.SummaryGeneratedAt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan album: %w", err)
	}
	return &a, nil
}

// Upsert inserts or refreshes an album row keyed by Spotify ID
func (r *postgresAlbumRepository) Upsert(ctx context.Context, album *models.Album) error {
	const query = `
		INSERT INTO albums (spotify_id, title, artist, artist_id, cover_url, release_date, genres)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (spotify_id) DO UPDATE SET
			title = EXCLUDED.title,
			artist = EXCLUDED.artist,
			artist_id = COALESCE(EXCLUDED.artist_id, albums.artist_id),
			cover_url = EXCLUDED.cover_url,
			release_date = EXCLUDED.release_date,
			genres = EXCLUDED.genres
		RETURNING id, created_at`

	err := r.db.Pool.QueryRow(ctx, query,
		album.SpotifyID, album.Title, album.Artist, album.ArtistID,
		album.CoverURL, album.ReleaseDate, album.Genres).
		Scan(&album.ID, &album.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert album: %w", err)
	}
	return nil
}

// FindByID finds an album by primary key
func (r *postgresAlbumRepository) FindByID(ctx context.Context, id int64) (*models.Album, error) {
	query, args, err := psql.Select(albumColumns...).
		From("albums").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build album query: %w", err)
	}
	return scanAlbum(r.db.Pool.QueryRow(ctx, query, args...))
}

// FindBySpotifyID finds an album by its Spotify ID
func (r *postgresAlbumRepository) FindBySpotifyID(ctx context.Context, spotifyID string) (*models.Album, error) {
	query, args, err := psql.Select(albumColumns...).
		From("albums").Where(sq.Eq{"spotify_id": spotifyID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build album query: %w", err)
	}
	return scanAlbum(r.db.Pool.QueryRow(ctx, query, args...))
}

// FindByArtistID lists albums linked to a local artist
func (r *postgresAlbumRepository) FindByArtistID(ctx context.Context, artistID int64) ([]*models.Album, error) {
	query, args, err := psql.Select(albumColumns...).
		From("albums").Where(sq.Eq{"artist_id": artistID}).
		OrderBy("release_date DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build artist albums query: %w", err)
	}
	return r.queryAlbums(ctx, query, args)
}

// Stats aggregates review data for an album
func (r *postgresAlbumRepository) Stats(ctx context.Context, albumID int64) (*models.AlbumStats, error) {
	const query = `
		SELECT COUNT(*), COALESCE(AVG(rating), 0), COUNT(*) FILTER (WHERE is_favorite)
		FROM reviews WHERE album_id = $1`

	stats := &models.AlbumStats{AlbumID: albumID}
	err := r.db.Pool.QueryRow(ctx, query, albumID).
		Scan(&stats.ReviewCount, &stats.AverageRating, &stats.FavoriteCount)
	if err != nil {
		return nil, fmt.Errorf("failed to query album stats: %w", err)
	}
	return stats, nil
}

// PopularSince ranks albums by review count over a recent window
func (r *postgresAlbumRepository) PopularSince(ctx context.Context, since time.Time, limit int) ([]*models.Album, error) {
	query, args, err := psql.Select(prefixColumns("a", albumColumns)...).
		From("albums a").
		Join("reviews rv ON rv.album_id = a.id").
		Where(sq.GtOrEq{"rv.created_at": since}).
		GroupBy("a.id").
		OrderBy("COUNT(rv.id) DESC", "AVG(rv.rating) DESC").
		Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build popular albums query: %w", err)
	}
	return r.queryAlbums(ctx, query, args)
}

// SaveSummary persists a generated album summary
func (r *postgresAlbumRepository) SaveSummary(ctx context.Context, albumID int64, summary string) error {
	query, args, err := psql.Update("albums").
		Set("ai_summary", summary).
		Set("summary_generated_at", time.Now()).
		Where(sq.Eq{"id": albumID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build summary update: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update album summary: %w", err)
	}
	return nil
}

func (r *postgresAlbumRepository) queryAlbums(ctx context.Context, query string, args []any) ([]*models.Album, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	var albums []*models.Album
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, album)
	}
	return albums, rows.Err()
}
