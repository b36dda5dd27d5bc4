package testutil

import (
	"time"

	"soundscore/internal/models"
)

// UserBuilder provides a fluent interface for creating test users
type UserBuilder struct {
	user *models.User
}

// NewUserBuilder creates a new user builder with default values
func NewUserBuilder() *UserBuilder {
	user := models.NewUser("testuser", "test@example.com", "$2a$10$fakehashfortestingonly")
	user.ID = 1
	return &UserBuilder{user: user}
}

// WithID sets the user ID
func (b *UserBuilder) WithID(id int64) *UserBuilder {
	b.user.ID = id
	return b
}

// WithUsername sets the username
func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.user.Username = username
	return b
}

// WithEmail sets the email
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.user.Email = email
	return b
}

// WithBio sets the profile bio
func (b *UserBuilder) WithBio(bio string) *UserBuilder {
	b.user.Bio = bio
	return b
}

// WithoutPassword clears the password hash, as OAuth-only accounts have
func (b *UserBuilder) WithoutPassword() *UserBuilder {
	b.user.PasswordHash = ""
	return b
}

// Build returns the constructed user
func (b *UserBuilder) Build() *models.User {
	return b.user
}

// ReviewBuilder provides a fluent interface for creating test reviews
type ReviewBuilder struct {
	review *models.Review
}

// NewReviewBuilder creates a new review builder with default values
func NewReviewBuilder() *ReviewBuilder {
	review := models.NewReview(1, 1, 4, "Great record", false)
	review.ID = 1
	review.Username = "testuser"
	return &ReviewBuilder{review: review}
}

// WithID sets the review ID
func (b *ReviewBuilder) WithID(id int64) *ReviewBuilder {
	b.review.ID = id
	return b
}

// WithUser sets the author
func (b *ReviewBuilder) WithUser(userID int64, username string) *ReviewBuilder {
	b.review.UserID = userID
	b.review.Username = username
	return b
}

// WithAlbum sets the reviewed album
func (b *ReviewBuilder) WithAlbum(album *models.Album) *ReviewBuilder {
	b.review.AlbumID = album.ID
	b.review.Album = album
	return b
}

// WithRating sets the rating
func (b *ReviewBuilder) WithRating(rating int) *ReviewBuilder {
	b.review.Rating = rating
	return b
}

// WithText sets the review text
func (b *ReviewBuilder) WithText(text string) *ReviewBuilder {
	b.review.Text = text
	return b
}

// WithLikes sets the like count
func (b *ReviewBuilder) WithLikes(count int) *ReviewBuilder {
	b.review.LikeCount = count
	return b
}

// Favorite marks the review as a favorite
func (b *ReviewBuilder) Favorite() *ReviewBuilder {
	b.review.IsFavorite = true
	return b
}

// Build returns the constructed review
func (b *ReviewBuilder) Build() *models.Review {
	return b.review
}

// Common test data
var (
	// Sample Spotify IDs
	SpotifyAlbumID1  = "4aawyAB9vmqN3uQ7FjRGTy"
	SpotifyAlbumID2  = "2noRn2Aes5aoNVsU6iWThc"
	SpotifyArtistID1 = "0OdUWJ0sBjDrqHygGUXeCF"
	SpotifyTrackID1  = "4iV5W9uYEdYUVa79Axb7Rh"
)

// CreateTestAlbum creates a basic test album with a stored ID
func CreateTestAlbum() *models.Album {
	return &models.Album{
		ID:          1,
		SpotifyID:   SpotifyAlbumID1,
		Title:       "Test Album",
		Artist:      "Test Artist",
		CoverURL:    "https://i.scdn.co/image/test",
		ReleaseDate: "2020-01-31",
		Genres:      []string{"indie rock"},
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// CreateTestScrobble creates a scrobble for the given user and play time
func CreateTestScrobble(userID int64, playedAt time.Time) *models.Scrobble {
	return &models.Scrobble{
		UserID:         userID,
		TrackName:      "Test Track",
		ArtistName:     "Test Artist",
		AlbumName:      "Test Album",
		SpotifyTrackID: SpotifyTrackID1,
		PlayedAt:       playedAt,
	}
}
