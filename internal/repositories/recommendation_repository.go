package repositories

import (
	"context"
	"fmt"

	"soundscore/internal/models"
)

// FollowCandidate is one potential who-to-follow suggestion with the raw
// signals the scorer combines.
type FollowCandidate struct {
	User *models.User

	// Follows shared between the viewer and the candidate
	MutualFollows int

	// Distinct genres both users have reviewed
	SharedGenres int

	// Albums both users have reviewed and the summed rating distance on them
	SharedAlbums  int
	RatingDiffSum float64

	// Candidate reviews in the last 30 days
	RecentReviews int
}

// RecommendationRepository surfaces follow candidates and their signals
type RecommendationRepository interface {
	// Candidates returns users the viewer does not follow, reachable
	// through the follow graph, with scoring signals attached.
	Candidates(ctx context.Context, viewerID int64, limit int) ([]*FollowCandidate, error)
}

// postgresRecommendationRepository implements RecommendationRepository using Postgres
type postgresRecommendationRepository struct {
	db *models.Database
}

// NewPostgresRecommendationRepository creates a new Postgres-backed recommendation repository
func NewPostgresRecommendationRepository(db *models.Database) RecommendationRepository {
	return &postgresRecommendationRepository{db: db}
}

// Candidates walks friends-of-friends and attaches the scoring signals in
// one pass. Squirrel does not compose CTEs well, so this one stays raw.
func (r *postgresRecommendationRepository) Candidates(ctx context.Context, viewerID int64, limit int) ([]*FollowCandidate, error) {
	const query = `
		WITH my_follows AS (
			SELECT followed_id FROM user_follows WHERE follower_id = $1
		),
		candidates AS (
			SELECT DISTINCT f2.followed_id AS id
			FROM user_follows f2
			WHERE f2.follower_id IN (SELECT followed_id FROM my_follows)
			  AND f2.followed_id <> $1
			  AND f2.followed_id NOT IN (SELECT followed_id FROM my_follows)
		),
		my_genres AS (
			SELECT DISTINCT unnest(a.genres) AS genre
			FROM reviews r JOIN albums a ON a.id = r.album_id
			WHERE r.user_id = $1
		)
		SELECT
			u.id, u.username, u.email, COALESCE(u.password_hash, ''), u.bio,
			u.profile_picture_url, u.banner_image_url, u.created_at,
			(SELECT COUNT(*) FROM user_follows mf
				WHERE mf.follower_id = c.id
				  AND mf.followed_id IN (SELECT followed_id FROM my_follows)) AS mutual_follows,
			(SELECT COUNT(DISTINCT g.genre) FROM (
				SELECT unnest(a.genres) AS genre
				FROM reviews r JOIN albums a ON a.id = r.album_id
				WHERE r.user_id = c.id
			) g WHERE g.genre IN (SELECT genre FROM my_genres)) AS shared_genres,
			(SELECT COUNT(*) FROM reviews mine
				JOIN reviews theirs ON theirs.album_id = mine.album_id AND theirs.user_id = c.id
				WHERE mine.user_id = $1) AS shared_albums,
			COALESCE((SELECT SUM(ABS(mine.rating - theirs.rating)) FROM reviews mine
				JOIN reviews theirs ON theirs.album_id = mine.album_id AND theirs.user_id = c.id
				WHERE mine.user_id = $1), 0) AS rating_diff_sum,
			(SELECT COUNT(*) FROM reviews r
				WHERE r.user_id = c.id AND r.created_at >= NOW() - INTERVAL '30 days') AS recent_reviews
		FROM candidates c
		JOIN users u ON u.id = c.id
		LIMIT $2`

	rows, err := r.db.Pool.Query(ctx, query, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query follow candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*FollowCandidate
	for rows.Next() {
		var c FollowCandidate
		var u models.User
		err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Bio,
			&u.ProfilePictureURL, &u.BannerImageURL, &u.CreatedAt,
			&c.MutualFollows, &c.SharedGenres, &c.SharedAlbums, &c.RatingDiffSum, &c.RecentReviews)
		if err != nil {
			return nil, fmt.Errorf("failed to scan follow candidate: %w", err)
		}
		c.User = &u
		candidates = append(candidates, &c)
	}
	return candidates, rows.Err()
}
