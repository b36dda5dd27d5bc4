package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReview(t *testing.T) {
	review := NewReview(1, 2, 4, "solid record", true)

	assert.NotEmpty(t, review.UUID)
	assert.Equal(t, int64(1), review.UserID)
	assert.Equal(t, int64(2), review.AlbumID)
	assert.Equal(t, 4, review.Rating)
	assert.True(t, review.IsFavorite)
	assert.False(t, review.CreatedAt.IsZero())

	// Each review gets its own public UUID
	other := NewReview(1, 3, 5, "", false)
	assert.NotEqual(t, review.UUID, other.UUID)
}

func TestValidateRating(t *testing.T) {
	for rating := MinRating; rating <= MaxRating; rating++ {
		assert.NoError(t, ValidateRating(rating))
	}
	assert.Error(t, ValidateRating(0))
	assert.Error(t, ValidateRating(6))
	assert.Error(t, ValidateRating(-1))
}

func TestNormalizeUserPair(t *testing.T) {
	a, b := NormalizeUserPair(7, 3)
	assert.Equal(t, int64(3), a)
	assert.Equal(t, int64(7), b)

	a, b = NormalizeUserPair(3, 7)
	assert.Equal(t, int64(3), a)
	assert.Equal(t, int64(7), b)
}

func TestConversationHelpers(t *testing.T) {
	conv := &Conversation{ID: 1, User1ID: 3, User2ID: 7}

	assert.Equal(t, int64(7), conv.OtherUserID(3))
	assert.Equal(t, int64(3), conv.OtherUserID(7))
	assert.True(t, conv.HasParticipant(3))
	assert.True(t, conv.HasParticipant(7))
	assert.False(t, conv.HasParticipant(9))
}

func TestOAuthAccountTokenExpired(t *testing.T) {
	account := &OAuthAccount{}
	assert.False(t, account.TokenExpired(), "no expiry recorded")

	account.TokenExpiresAt = time.Now().Add(time.Hour)
	assert.False(t, account.TokenExpired())

	// Tokens within the one minute refresh window count as expired
	account.TokenExpiresAt = time.Now().Add(30 * time.Second)
	assert.True(t, account.TokenExpired())

	account.TokenExpiresAt = time.Now().Add(-time.Hour)
	assert.True(t, account.TokenExpired())
}

func TestArtistBioStale(t *testing.T) {
	artist := &Artist{}
	assert.True(t, artist.BioStale(30*24*time.Hour), "no bio yet")

	recent := time.Now().Add(-time.Hour)
	artist.AIBio = "formed in 1991"
	artist.BioGeneratedAt = &recent
	assert.False(t, artist.BioStale(30*24*time.Hour))

	old := time.Now().Add(-31 * 24 * time.Hour)
	artist.BioGeneratedAt = &old
	assert.True(t, artist.BioStale(30*24*time.Hour))
}

func TestUserPublicProfile(t *testing.T) {
	user := NewUser("ada", "ada@example.com", "$2a$10$hash")
	user.ID = 5
	user.Bio = "reviews jazz"

	profile := user.PublicProfile()
	require.Equal(t, int64(5), profile.ID)
	assert.Equal(t, "ada", profile.Username)
	assert.Equal(t, "reviews jazz", profile.Bio)
}

func TestGroupMemberCanModerate(t *testing.T) {
	assert.True(t, (&GroupMember{Role: RoleAdmin}).CanModerate())
	assert.True(t, (&GroupMember{Role: RoleModerator}).CanModerate())
	assert.False(t, (&GroupMember{Role: RoleMember}).CanModerate())
}

func TestValidNotificationType(t *testing.T) {
	for _, valid := range []string{
		NotificationLike, NotificationComment, NotificationReply,
		NotificationFollow, NotificationGroupInvite,
	} {
		assert.True(t, ValidNotificationType(valid), valid)
	}
	assert.False(t, ValidNotificationType("poke"))
	assert.False(t, ValidNotificationType(""))
}
