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

var userColumns = []string{
	"id", "username", "email", "COALESCE(password_hash, '')",
	"bio", "profile_picture_url", "banner_image_url", "created_at",
}

// postgresUserRepository implements UserRepository using Postgres
type postgresUserRepository struct {
	db *models.Database
}

// NewPostgresUserRepository creates a new Postgres-backed user repository
func NewPostgresUserRepository(db *models.Database) UserRepository {
	return &postgresUserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.Bio, &u.ProfilePictureURL, &u.BannerImageURL, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// Create inserts a new user
func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	var hash any
	if user.PasswordHash != "" {
		hash = user.PasswordHash
	}

	query, args, err := psql.Insert("users").
		Columns("username", "email", "password_hash", "bio", "profile_picture_url", "banner_image_url").
		Values(user.Username, user.Email, hash, user.Bio, user.ProfilePictureURL, user.BannerImageURL).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user insert: %w", err)
	}

	err = r.db.Pool.QueryRow(ctx, query, args...).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// FindByID finds a user by primary key
func (r *postgresUserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query, args, err := psql.Select(userColumns...).
		From("users").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}
	return scanUser(r.db.Pool.QueryRow(ctx, query, args...))
}

// FindByEmail finds a user by email
func (r *postgresUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query, args, err := psql.Select(userColumns...).
		From("users").Where("LOWER(email) = LOWER(?)", email).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}
	return scanUser(r.db.Pool.QueryRow(ctx, query, args...))
}

// FindByUsername finds a user by username
func (r *postgresUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query, args, err := psql.Select(userColumns...).
		From("users").Where("LOWER(username) = LOWER(?)", username).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}
	return scanUser(r.db.Pool.QueryRow(ctx, query, args...))
}

// Update saves profile fields
func (r *postgresUserRepository) Update(ctx context.Context, user *models.User) error {
	query, args, err := psql.Update("users").
		Set("username", user.Username).
		Set("bio", user.Bio).
		Set("profile_picture_url", user.ProfilePictureURL).
		Set("banner_image_url", user.BannerImageURL).
		Where(sq.Eq{"id": user.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user update: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// UpdatePassword replaces the password hash
func (r *postgresUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query, args, err := psql.Update("users").
		Set("password_hash", passwordHash).
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build password update: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// Search finds users by username prefix
func (r *postgresUserRepository) Search(ctx context.Context, query string, limit int) ([]*models.User, error) {
	sqlQuery, args, err := psql.Select(userColumns...).
		From("users").
		Where("username ILIKE ?", query+"%").
		OrderBy("username").
		Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user search: %w", err)
	}
	return r.queryUsers(ctx, sqlQuery, args)
}

// Follow inserts a follow edge. Following twice is a no-op.
func (r *postgresUserRepository) Follow(ctx context.Context, followerID, followedID int64) error {
	if followerID == followedID {
		return fmt.Errorf("cannot follow yourself")
	}

	query, args, err := psql.Insert("user_follows").
		Columns("follower_id", "followed_id").
		Values(followerID, followedID).
		Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build follow insert: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert follow: %w", err)
	}
	return nil
}

// Unfollow removes a follow edge
func (r *postgresUserRepository) Unfollow(ctx context.Context, followerID, followedID int64) error {
	query, args, err := psql.Delete("user_follows").
		Where(sq.Eq{"follower_id": followerID, "followed_id": followedID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build unfollow delete: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	return nil
}

// IsFollowing checks for an existing follow edge
func (r *postgresUserRepository) IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error) {
	query, args, err := psql.Select("1").From("user_follows").
		Where(sq.Eq{"follower_id": followerID, "followed_id": followedID}).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build follow query: %w", err)
	}

	var one int
	err = r.db.Pool.QueryRow(ctx, query, args...).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to query follow: %w", err)
	}
	return true, nil
}

// Followers lists users following userID
func (r *postgresUserRepository) Followers(ctx context.Context, userID int64, limit, offset int) ([]*models.User, error) {
	query, args, err := psql.Select(prefixColumns("u", userColumns)...).
		From("users u").
		Join("user_follows f ON f.follower_id = u.id").
		Where(sq.Eq{"f.followed_id": userID}).
		OrderBy("f.created_at DESC").
		Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build followers query: %w", err)
	}
	return r.queryUsers(ctx, query, args)
}

// Following lists users userID follows
func (r *postgresUserRepository) Following(ctx context.Context, userID int64, limit, offset int) ([]*models.User, error) {
	query, args, err := psql.Select(prefixColumns("u", userColumns)...).
		From("users u").
		Join("user_follows f ON f.followed_id = u.id").
		Where(sq.Eq{"f.follower_id": userID}).
		OrderBy("f.created_at DESC").
		Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build following query: %w", err)
	}
	return r.queryUsers(ctx, query, args)
}

// FollowingIDs returns the IDs of everyone userID follows
func (r *postgresUserRepository) FollowingIDs(ctx context.Context, userID int64) ([]int64, error) {
	query, args, err := psql.Select("followed_id").From("user_follows").
		Where(sq.Eq{"follower_id": userID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build following ids query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query following ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan following id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Profile assembles the public profile with counts and the viewer's
// follow state. viewerID may be zero for anonymous requests.
func (r *postgresUserRepository) Profile(ctx context.Context, userID, viewerID int64) (*models.PublicProfile, error) {
	user, err := r.FindByID(ctx, userID)
	if err != nil || user == nil {
		return nil, err
	}

	profile := user.PublicProfile()

	const counts = `
		SELECT
			(SELECT COUNT(*) FROM user_follows WHERE followed_id = $1),
			(SELECT COUNT(*) FROM user_follows WHERE follower_id = $1),
			(SELECT COUNT(*) FROM reviews WHERE user_id = $1)`
	err = r.db.Pool.QueryRow(ctx, counts, userID).
		Scan(&profile.FollowerCount, &profile.FollowingCount, &profile.ReviewCount)
	if err != nil {
		return nil, fmt.Errorf("failed to query profile counts: %w", err)
	}

	if viewerID != 0 && viewerID != userID {
		profile.IsFollowing, err = r.IsFollowing(ctx, viewerID, userID)
		if err != nil {
			return nil, err
		}
	}

	return &profile, nil
}

// MostActiveReviewers returns users with the most reviews since the cutoff,
// used as the cold-start recommendation fallback.
func (r *postgresUserRepository) MostActiveReviewers(ctx context.Context, since time.Time, excludeID int64, limit int) ([]*models.User, error) {
	query, args, err := psql.Select(prefixColumns("u", userColumns)...).
		From("users u").
		Join("reviews rv ON rv.user_id = u.id").
		Where(sq.GtOrEq{"rv.created_at": since}).
		Where(sq.NotEq{"u.id": excludeID}).
		GroupBy("u.id").
		OrderBy("COUNT(rv.id) DESC").
		Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build active reviewers query: %w", err)
	}
	return r.queryUsers(ctx, query, args)
}

func (r *postgresUserRepository) queryUsers(ctx context.Context, query string, args []any) ([]*models.User, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// prefixColumns qualifies bare column names with a table alias
func prefixColumns(alias string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		if c == "COALESCE(password_hash, '')" {
			out[i] = "COALESCE(" + alias + ".password_hash, '')"
			continue
		}
		out[i] = alias + "." + c
	}
	return out
}
