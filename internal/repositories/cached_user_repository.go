package repositories

import (
	"context"
	"log/slog"
	"time"

	"soundscore/internal/cache"
	"soundscore/internal/models"
)

// cachedUserRepository wraps a UserRepository with caching on the
// authenticated-user hot path. Every authenticated request resolves the
// bearer token to a user row, so FindByID results are kept in cache for a
// short TTL and invalidated on writes.
type cachedUserRepository struct {
	repository UserRepository
	cache      cache.Cache
	ttl        time.Duration
}

// NewCachedUserRepository creates a new cached user repository
func NewCachedUserRepository(repository UserRepository, c cache.Cache, ttl time.Duration) UserRepository {
	if ttl <= 0 {
		ttl = cache.AuthUserTTL
	}
	return &cachedUserRepository{
		repository: repository,
		cache:      c,
		ttl:        ttl,
	}
}

// FindByID checks cache first, then repository
func (r *cachedUserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	key := cache.AuthUserKey(id)

	var cached models.User
	if found, err := cache.GetJSON(ctx, r.cache, key, &cached); err == nil && found {
		return &cached, nil
	}

	user, err := r.repository.FindByID(ctx, id)
	if err != nil || user == nil {
		return user, err
	}

	if err := cache.SetJSON(ctx, r.cache, key, user, r.ttl); err != nil {
		slog.Warn("Failed to cache user", "user_id", id, "error", err)
	}

	return user, nil
}

// Update writes through and invalidates the cached row
func (r *cachedUserRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.repository.Update(ctx, user); err != nil {
		return err
	}
	r.invalidate(ctx, user.ID)
	return nil
}

// UpdatePassword writes through and invalidates the cached row
func (r *cachedUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if err := r.repository.UpdatePassword(ctx, id, passwordHash); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *cachedUserRepository) invalidate(ctx context.Context, id int64) {
	if err := r.cache.Delete(ctx, cache.AuthUserKey(id)); err != nil {
		slog.Warn("Failed to invalidate cached user", "user_id", id, "error", err)
	}
}

// Remaining operations pass through uncached.

func (r *cachedUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.repository.Create(ctx, user)
}

func (r *cachedUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.repository.FindByEmail(ctx, email)
}

func (r *cachedUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.repository.FindByUsername(ctx, username)
}

func (r *cachedUserRepository) Search(ctx context.Context, query string, limit int) ([]*models.User, error) {
	return r.repository.Search(ctx, query, limit)
}

func (r *cachedUserRepository) Follow(ctx context.Context, followerID, followedID int64) error {
	return r.repository.Follow(ctx, followerID, followedID)
}

func (r *cachedUserRepository) Unfollow(ctx context.Context, followerID, followedID int64) error {
	return r.repository.Unfollow(ctx, followerID, followedID)
}

func (r *cachedUserRepository) IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error) {
	return r.repository.IsFollowing(ctx, followerID, followedID)
}

func (r *cachedUserRepository) Followers(ctx context.Context, userID int64, limit, offset int) ([]*models.User, error) {
	return r.repository.Followers(ctx, userID, limit, offset)
}

func (r *cachedUserRepository) Following(ctx context.Context, userID int64, limit, offset int) ([]*models.User, error) {
	return r.repository.Following(ctx, userID, limit, offset)
}

func (r *cachedUserRepository) FollowingIDs(ctx context.Context, userID int64) ([]int64, error) {
	return r.repository.FollowingIDs(ctx, userID)
}

func (r *cachedUserRepository) Profile(ctx context.Context, userID, viewerID int64) (*models.PublicProfile, error) {
	return r.repository.Profile(ctx, userID, viewerID)
}

func (r *cachedUserRepository) MostActiveReviewers(ctx context.Context, since time.Time, excludeID int64, limit int) ([]*models.User, error) {
	return r.repository.MostActiveReviewers(ctx, since, excludeID, limit)
}
