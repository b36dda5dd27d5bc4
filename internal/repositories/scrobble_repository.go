package repositories

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"soundscore/internal/models"
)

// ScrobbleRepository defines the interface for listening history storage
type ScrobbleRepository interface {
	// InsertBatch stores pulled scrobbles, skipping duplicates. Returns
	// the number of new rows.
	InsertBatch(ctx context.Context, scrobbles []*models.Scrobble) (int, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.Scrobble, error)
	Stats(ctx context.Context, userID int64, since time.Time, topN int) (*models.ListeningStats, error)
	LatestPlayedAt(ctx context.Context, userID int64) (*time.Time, error)
}

// postgresScrobbleRepository implements ScrobbleRepository using Postgres
type postgresScrobbleRepository struct {
	db *models.Database
}

// NewPostgresScrobbleRepository creates a new Postgres-backed scrobble repository
func NewPostgresScrobbleRepository(db *models.Database) ScrobbleRepository {
	return &postgresScrobbleRepository{db: db}
}

// InsertBatch inserts scrobbles, deduping on (user, track, played_at)
func (r *postgresScrobbleRepository) InsertBatch(ctx context.Context, scrobbles []*models.Scrobble) (int, error) {
	if len(scrobbles) == 0 {
		return 0, nil
	}

	builder := psql.Insert("scrobbles").
		Columns("user_id", "track_name", "artist_name", "album_name", "spotify_track_id", "played_at")
	for _, s := range scrobbles {
		builder = builder.Values(s.UserID, s.TrackName, s.ArtistName, s.AlbumName, s.SpotifyTrackID, s.PlayedAt)
	}

	query, args, err := builder.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build scrobble insert: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert scrobbles: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListByUser lists scrobbles newest first
func (r *postgresScrobbleRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.Scrobble, error) {
	query, args, err := psql.Select(
		"id", "user_id", "track_name", "artist_name", "album_name",
		"spotify_track_id", "played_at", "created_at",
	).
		From("scrobbles").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("played_at DESC").
		Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build scrobbles query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scrobbles: %w", err)
	}
	defer rows.Close()

	var scrobbles []*models.Scrobble
	for rows.Next() {
		var s models.Scrobble
		err := rows.Scan(&s.ID, &s.UserID, &s.TrackName, &s.ArtistName,
			&s.AlbumName, &s.SpotifyTrackID, &s.PlayedAt, &s.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scrobble: %w", err)
		}
		scrobbles = append(scrobbles, &s)
	}
	return scrobbles, rows.Err()
}

// Stats summarizes listening activity since the cutoff
func (r *postgresScrobbleRepository) Stats(ctx context.Context, userID int64, since time.Time, topN int) (*models.ListeningStats, error) {
	stats := &models.ListeningStats{Since: since}

	const totals = `
		SELECT COUNT(*), COUNT(DISTINCT spotify_track_id), COUNT(DISTINCT artist_name)
		FROM scrobbles WHERE user_id = $1 AND played_at >= $2`
	err := r.db.Pool.QueryRow(ctx, totals, userID, since).
		Scan(&stats.TotalScrobbles, &stats.UniqueTracks, &stats.UniqueArtists)
	if err != nil {
		return nil, fmt.Errorf("failed to query scrobble totals: %w", err)
	}

	stats.TopArtists, err = r.topEntries(ctx, "artist_name", userID, since, topN)
	if err != nil {
		return nil, err
	}
	stats.TopTracks, err = r.topEntries(ctx, "track_name", userID, since, topN)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *postgresScrobbleRepository) topEntries(ctx context.Context, column string, userID int64, since time.Time, limit int) ([]models.TopEntry, error) {
	query, args, err := psql.Select(column, "COUNT(*)").
		From("scrobbles").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"played_at": since}).
		GroupBy(column).
		OrderBy("COUNT(*) DESC").
		Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build top %s query: %w", column, err)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top %s: %w", column, err)
	}
	defer rows.Close()

	var entries []models.TopEntry
	for rows.Next() {
		var e models.TopEntry
		if err := rows.Scan(&e.Name, &e.PlayCount); err != nil {
			return nil, fmt.Errorf("failed to scan top entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LatestPlayedAt returns the most recent scrobble timestamp, or nil when
// the user has none.
func (r *postgresScrobbleRepository) LatestPlayedAt(ctx context.Context, userID int64) (*time.Time, error) {
	const query = `SELECT MAX(played_at) FROM scrobbles WHERE user_id = $1`

	var latest *time.Time
	if err := r.db.Pool.QueryRow(ctx, query, userID).Scan(&latest); err != nil {
		return nil, fmt.Errorf("failed to query latest scrobble: %w", err)
	}
	return latest, nil
}
