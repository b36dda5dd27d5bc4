package models

import (
	"time"
)

// User represents a registered account
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`

	// Profile
	Bio               string `json:"bio,omitempty"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
	BannerImageURL    string `json:"banner_image_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewUser creates a User with the fields set at registration
func NewUser(username, email, passwordHash string) *User {
	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
}

// HasPassword reports whether the account can log in with a password.
// OAuth-only accounts have no hash.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// PublicProfile is the shape returned for other users
type PublicProfile struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	Bio               string    `json:"bio,omitempty"`
	ProfilePictureURL string    `json:"profile_picture_url,omitempty"`
	BannerImageURL    string    `json:"banner_image_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`

	FollowerCount  int  `json:"follower_count"`
	FollowingCount int  `json:"following_count"`
	ReviewCount    int  `json:"review_count"`
	IsFollowing    bool `json:"is_following"`
}

// PublicProfile strips private fields from a User
func (u *User) PublicProfile() PublicProfile {
	return PublicProfile{
		ID:                u.ID,
		Username:          u.Username,
		Bio:               u.Bio,
		ProfilePictureURL: u.ProfilePictureURL,
		BannerImageURL:    u.BannerImageURL,
		CreatedAt:         u.CreatedAt,
	}
}

// Follow represents a follower → followed edge
type Follow struct {
	FollowerID int64     `json:"follower_id"`
	FollowedID int64     `json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// OAuthProvider values stored in oauth_accounts.provider
const (
	OAuthProviderGoogle  = "google"
	OAuthProviderSpotify = "spotify"
)

// OAuthAccount links a user to an external identity provider
type OAuthAccount struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"provider_user_id"`
	AccessToken    string    `json:"-"`
	RefreshToken   string    `json:"-"`
	TokenExpiresAt time.Time `json:"token_expires_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// TokenExpired reports whether the stored access token needs a refresh
func (a *OAuthAccount) TokenExpired() bool {
	if a.TokenExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(a.TokenExpiresAt.Add(-time.Minute))
}
