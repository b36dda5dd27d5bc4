package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"soundscore/internal/models"
)

// CommentRepository defines the interface for review comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id, userID int64) (bool, error)
	FindByID(ctx context.Context, id int64) (*models.Comment, error)

	// ListByReview returns top-level comments with replies nested one
	// level deep.
	ListByReview(ctx context.Context, reviewID, viewerID int64) ([]models.Comment, error)

	// Like returns false when the comment was already liked
	Like(ctx context.Context, userID, commentID int64) (bool, error)
	Unlike(ctx context.Context, userID, commentID int64) error
}

// postgresCommentRepository implements CommentRepository using Postgres
type postgresCommentRepository struct {
	db *models.Database
}

// NewPostgresCommentRepository creates a new Postgres-backed comment repository
func NewPostgresCommentRepository(db *models.Database) CommentRepository {
	return &postgresCommentRepository{db: db}
}

// Create inserts a comment or reply
func (r *postgresCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	query, args, err := psql.Insert("comments").
		Columns("review_id", "user_id", "parent_id", "text").
		Values(comment.ReviewID, comment.UserID, comment.ParentID, comment.Text).
		Suffix("RETURNING id, created_at").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build comment insert: %w", err)
	}

	err = r.db.Pool.QueryRow(ctx, query, args...).Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// Delete removes a comment owned by userID. Replies cascade.
func (r *postgresCommentRepository) Delete(ctx context.Context, id, userID int64) (bool, error) {
	query, args, err := psql.Delete("comments").
		Where(sq.Eq{"id": id, "user_id": userID}).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build comment delete: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete comment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FindByID loads a bare comment row
func (r *postgresCommentRepository) FindByID(ctx context.Context, id int64) (*models.Comment, error) {
	query, args, err := psql.Select("id", "review_id", "user_id", "parent_id", "text", "created_at").
		From("comments").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build comment query: %w", err)
	}

	var c models.Comment
	err = r.db.Pool.QueryRow(ctx, query, args...).
		Scan(&c.ID, &c.ReviewID, &c.UserID, &c.ParentID, &c.Text, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query comment: %w", err)
	}
	return &c, nil
}

// ListByReview returns the comment thread for a review. Comments are
// fetched flat in one query and nested in memory.
func (r *postgresCommentRepository) ListByReview(ctx context.Context, reviewID, viewerID int64) ([]models.Comment, error) {
	query, args, err := psql.Select(
		"c.id", "c.review_id", "c.user_id", "c.parent_id", "c.text", "c.created_at",
		"u.username",
		"(SELECT COUNT(*) FROM comment_likes cl WHERE cl.comment_id = c.id)",
	).
		Column("EXISTS(SELECT 1 FROM comment_likes cl WHERE cl.comment_id = c.id AND cl.user_id = ?)", viewerID).
		From("comments c").
		Join("users u ON u.id = c.user_id").
		Where(sq.Eq{"c.review_id": reviewID}).
		OrderBy("c.created_at ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build comments query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var flat []models.Comment
	for rows.Next() {
		var c models.Comment
		err := rows.Scan(&c.ID, &c.ReviewID, &c.UserID, &c.ParentID, &c.Text,
			&c.CreatedAt, &c.Username, &c.LikeCount, &c.LikedByMe)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		flat = append(flat, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return nestComments(flat), nil
}

// nestComments groups replies under their parents, preserving order
func nestComments(flat []models.Comment) []models.Comment {
	var top []models.Comment
	index := make(map[int64]int)

	for _, c := range flat {
		if c.ParentID == nil {
			top = append(top, c)
			index[c.ID] = len(top) - 1
		}
	}
	for _, c := range flat {
		if c.ParentID == nil {
			continue
		}
		if i, ok := index[*c.ParentID]; ok {
			top[i].Replies = append(top[i].Replies, c)
		}
	}
	return top
}

// Like inserts a like edge. Returns false when it already existed.
func (r *postgresCommentRepository) Like(ctx context.Context, userID, commentID int64) (bool, error) {
	query, args, err := psql.Insert("comment_likes").
		Columns("user_id", "comment_id").
		Values(userID, commentID).
		Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build comment like insert: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to insert comment like: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Unlike removes a like edge
func (r *postgresCommentRepository) Unlike(ctx context.Context, userID, commentID int64) error {
	query, args, err := psql.Delete("comment_likes").
		Where(sq.Eq{"user_id": userID, "comment_id": commentID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build comment unlike delete: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete comment like: %w", err)
	}
	return nil
}
