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

// ReviewRepository defines the interface for review and like operations
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id, userID int64) (bool, error)
	FindByID(ctx context.Context, id, viewerID int64) (*models.Review, error)
	FindByUUID(ctx context.Context, uuid string, viewerID int64) (*models.Review, error)
	FindByUserAndAlbum(ctx context.Context, userID, albumID int64) (*models.Review, error)
	ListByAlbum(ctx context.Context, albumID, viewerID int64, limit, offset int) ([]*models.Review, error)
	ListByUser(ctx context.Context, userID, viewerID int64, limit, offset int) ([]*models.Review, error)

	// Feed lists reviews by users that userID follows, newest first
	Feed(ctx context.Context, userID int64, limit, offset int) ([]*models.Review, error)

	// PopularSince ranks recent reviews by like count
	PopularSince(ctx context.Context, since time.Time, viewerID int64, limit int) ([]*models.Review, error)

	// Like returns false when the review was already liked
	Like(ctx context.Context, userID, reviewID int64) (bool, error)
	Unlike(ctx context.Context, userID, reviewID int64) error
}

// postgresReviewRepository implements ReviewRepository using Postgres
type postgresReviewRepository struct {
	db *models.Database
}

// NewPostgresReviewRepository creates a new Postgres-backed review repository
func NewPostgresReviewRepository(db *models.Database) ReviewRepository {
	return &postgresReviewRepository{db: db}
}

// reviewSelect joins the author and album and computes like/comment counts.
// The first placeholder is always the viewer ID for liked_by_me.
func reviewSelect(viewerID int64) sq.SelectBuilder {
	return psql.Select(
		"r.id", "r.uuid", "r.user_id", "r.album_id", "r.rating", "r.text",
		"r.is_favorite", "r.created_at", "r.updated_at", "u.username",
		"(SELECT COUNT(*) FROM review_likes rl WHERE rl.review_id = r.id)",
		"(SELECT COUNT(*) FROM comments c WHERE c.review_id = r.id)",
	).
		Column("EXISTS(SELECT 1 FROM review_likes rl WHERE rl.review_id = r.id AND rl.user_id = ?)", viewerID).
		Columns("a.id", "a.spotify_id", "a.title", "a.artist", "a.cover_url", "a.release_date").
		From("reviews r").
		Join("users u ON u.id = r.user_id").
		Join("albums a ON a.id = r.album_id")
}

func scanReview(row pgx.Row) (*models.Review, error) {
	var rv models.Review
	var album models.Album
	err := row.Scan(&rv.ID, &rv.UUID, &rv.UserID, &rv.AlbumID, &rv.Rating,
		&rv.Text, &rv.IsFavorite, &rv.CreatedAt, &rv.UpdatedAt, &rv.Username,
		&rv.LikeCount, &rv.CommentCount, &rv.LikedByMe,
		&album.ID, &album.SpotifyID, &album.Title, &album.Artist,
		&album.CoverURL, &album.ReleaseDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan review: %w", err)
	}
	rv.Album = &album
	return &rv, nil
}

// Create inserts a review. Returns ErrDuplicate when the user already
// reviewed the album.
func (r *postgresReviewRepository) Create(ctx context.Context, review *models.Review) error {
	query, args, err := psql.Insert("reviews").
		Columns("uuid", "user_id", "album_id", "rating", "text", "is_favorite").
		Values(review.UUID, review.UserID, review.AlbumID, review.Rating, review.Text, review.IsFavorite).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build review insert: %w", err)
	}

	err = r.db.Pool.QueryRow(ctx, query, args...).
		Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// Update saves rating, text and favorite flag
func (r *postgresReviewRepository) Update(ctx context.Context, review *models.Review) error {
	query, args, err := psql.Update("reviews").
		Set("rating", review.Rating).
		Set("text", review.Text).
		Set("is_favorite", review.IsFavorite).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": review.ID, "user_id": review.UserID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build review update: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	return nil
}

// Delete removes a review owned by userID. Returns false when no row matched.
func (r *postgresReviewRepository) Delete(ctx context.Context, id, userID int64) (bool, error) {
	query, args, err := psql.Delete("reviews").
		Where(sq.Eq{"id": id, "user_id": userID}).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build review delete: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete review: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FindByID loads a review with counts for the given viewer
func (r *postgresReviewRepository) FindByID(ctx context.Context, id, viewerID int64) (*models.Review, error) {
	query, args, err := reviewSelect(viewerID).Where(sq.Eq{"r.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build review query: %w", err)
	}
	return scanReview(r.db.Pool.QueryRow(ctx, query, args...))
}

// FindByUUID loads a review by its public UUID
func (r *postgresReviewRepository) FindByUUID(ctx context.Context, uuid string, viewerID int64) (*models.Review, error) {
	query, args, err := reviewSelect(viewerID).Where(sq.Eq{"r.uuid": uuid}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build review query: %w", err)
	}
	return scanReview(r.db.Pool.QueryRow(ctx, query, args...))
}

// FindByUserAndAlbum loads the user's review of an album, if any
func (r *postgresReviewRepository) FindByUserAndAlbum(ctx context.Context, userID, albumID int64) (*models.Review, error) {
	query, args, err := reviewSelect(userID).
		Where(sq.Eq{"r.user_id": userID, "r.album_id": albumID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build review query: %w", err)
	}
	return scanReview(r.db.Pool.QueryRow(ctx, query, args...))
}

// ListByAlbum lists reviews for an album, newest first
func (r *postgresReviewRepository) ListByAlbum(ctx context.Context, albumID, viewerID int64, limit, offset int) ([]*models.Review, error) {
	query, args, err := reviewSelect(viewerID).
		Where(sq.Eq{"r.album_id": albumID}).
		OrderBy("r.created_at DESC").
		Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build album reviews query: %w", err)
	}
	return r.queryReviews(ctx, query, args)
}

// ListByUser lists a user's reviews, newest first
func (r *postgresReviewRepository) ListByUser(ctx context.Context, userID, viewerID int64, limit, offset int) ([]*models.Review, error) {
	query, args, err := reviewSelect(viewerID).
		Where(sq.Eq{"r.user_id": userID}).
		OrderBy("r.created_at DESC").
		Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user reviews query: %w", err)
	}
	return r.queryReviews(ctx, query, args)
}

// Feed lists reviews by followed users, newest first
func (r *postgresReviewRepository) Feed(ctx context.Context, userID int64, limit, offset int) ([]*models.Review, error) {
	query, args, err := reviewSelect(userID).
		Join("user_follows f ON f.followed_id = r.user_id").
		Where(sq.Eq{"f.follower_id": userID}).
		OrderBy("r.created_at DESC").
		Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build feed query: %w", err)
	}
	return r.queryReviews(ctx, query, args)
}

// PopularSince ranks recent reviews by like count
func (r *postgresReviewRepository) PopularSince(ctx context.Context, since time.Time, viewerID int64, limit int) ([]*models.Review, error) {
	query, args, err := reviewSelect(viewerID).
		Where(sq.GtOrEq{"r.created_at": since}).
		OrderBy("(SELECT COUNT(*) FROM review_likes rl WHERE rl.review_id = r.id) DESC", "r.created_at DESC").
		Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build popular reviews query: %w", err)
	}
	return r.queryReviews(ctx, query, args)
}

// Like inserts a like edge. Returns false when it already existed.
func (r *postgresReviewRepository) Like(ctx context.Context, userID, reviewID int64) (bool, error) {
	query, args, err := psql.Insert("review_likes").
		Columns("user_id", "review_id").
		Values(userID, reviewID).
		Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build like insert: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to insert like: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Unlike removes a like edge
func (r *postgresReviewRepository) Unlike(ctx context.Context, userID, reviewID int64) error {
	query, args, err := psql.Delete("review_likes").
		Where(sq.Eq{"user_id": userID, "review_id": reviewID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build unlike delete: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete like: %w", err)
	}
	return nil
}

func (r *postgresReviewRepository) queryReviews(ctx context.Context, query string, args []any) ([]*models.Review, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*models.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}
