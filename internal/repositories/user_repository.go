package repositories

import (
	"context"
	"time"

	"soundscore/internal/models"
)

// UserRepository defines the interface for user and follow data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Search(ctx context.Context, query string, limit int) ([]*models.User, error)

	// Follow graph
	Follow(ctx context.Context, followerID, followedID int64) error
	Unfollow(ctx context.Context, followerID, followedID int64) error
	IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error)
	Followers(ctx context.Context, userID int64, limit, offset int) ([]*models.User, error)
	Following(ctx context.Context, userID int64, limit, offset int) ([]*models.User, error)
	FollowingIDs(ctx context.Context, userID int64) ([]int64, error)
	Profile(ctx context.Context, userID, viewerID int64) (*models.PublicProfile, error)
	MostActiveReviewers(ctx context.Context, since time.Time, excludeID int64, limit int) ([]*models.User, error)
}
