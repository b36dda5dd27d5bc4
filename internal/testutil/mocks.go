package testutil

import (
	"context"
	"time"

	"soundscore/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository for testing
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) Search(ctx context.Context, query string, limit int) ([]*models.User, error) {
	args := m.Called(ctx, query, limit)
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) Follow(ctx context.Context, followerID, followedID int64) error {
	args := m.Called(ctx, followerID, followedID)
	return args.Error(0)
}

func (m *MockUserRepository) Unfollow(ctx context.Context, followerID, followedID int64) error {
	args := m.Called(ctx, followerID, followedID)
	return args.Error(0)
}

func (m *MockUserRepository) IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error) {
	args := m.Called(ctx, followerID, followedID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Followers(ctx context.Context, userID int64, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) Following(ctx context.Context, userID int64, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) FollowingIDs(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockUserRepository) Profile(ctx context.Context, userID, viewerID int64) (*models.PublicProfile, error) {
	args := m.Called(ctx, userID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PublicProfile), args.Error(1)
}

func (m *MockUserRepository) MostActiveReviewers(ctx context.Context, since time.Time, excludeID int64, limit int) ([]*models.User, error) {
	args := m.Called(ctx, since, excludeID, limit)
	return args.Get(0).([]*models.User), args.Error(1)
}

// MockReviewRepository is a mock implementation of ReviewRepository for testing
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) Update(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) Delete(ctx context.Context, id, userID int64) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReviewRepository) FindByID(ctx context.Context, id, viewerID int64) (*models.Review, error) {
	args := m.Called(ctx, id, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *MockReviewRepository) FindByUUID(ctx context.Context, uuid string, viewerID int64) (*models.Review, error) {
	args := m.Called(ctx, uuid, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *MockReviewRepository) FindByUserAndAlbum(ctx context.Context, userID, albumID int64) (*models.Review, error) {
	args := m.Called(ctx, userID, albumID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *MockReviewRepository) ListByAlbum(ctx context.Context, albumID, viewerID int64, limit, offset int) ([]*models.Review, error) {
	args := m.Called(ctx, albumID, viewerID, limit, offset)
	return args.Get(0).([]*models.Review), args.Error(1)
}

func (m *MockReviewRepository) ListByUser(ctx context.Context, userID, viewerID int64, limit, offset int) ([]*models.Review, error) {
	args := m.Called(ctx, userID, viewerID, limit, offset)
	return args.Get(0).([]*models.Review), args.Error(1)
}

func (m *MockReviewRepository) Feed(ctx context.Context, userID int64, limit, offset int) ([]*models.Review, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]*models.Review), args.Error(1)
}

func (m *MockReviewRepository) PopularSince(ctx context.Context, since time.Time, viewerID int64, limit int) ([]*models.Review, error) {
	args := m.Called(ctx, since, viewerID, limit)
	return args.Get(0).([]*models.Review), args.Error(1)
}

func (m *MockReviewRepository) Like(ctx context.Context, userID, reviewID int64) (bool, error) {
	args := m.Called(ctx, userID, reviewID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReviewRepository) Unlike(ctx context.Context, userID, reviewID int64) error {
	args := m.Called(ctx, userID, reviewID)
	return args.Error(0)
}

// MockCommentRepository is a mock implementation of CommentRepository for testing
type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *MockCommentRepository) Delete(ctx context.Context, id, userID int64) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCommentRepository) FindByID(ctx context.Context, id int64) (*models.Comment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockCommentRepository) ListByReview(ctx context.Context, reviewID, viewerID int64) ([]models.Comment, error) {
	args := m.Called(ctx, reviewID, viewerID)
	return args.Get(0).([]models.Comment), args.Error(1)
}

func (m *MockCommentRepository) Like(ctx context.Context, userID, commentID int64) (bool, error) {
	args := m.Called(ctx, userID, commentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCommentRepository) Unlike(ctx context.Context, userID, commentID int64) error {
	args := m.Called(ctx, userID, commentID)
	return args.Error(0)
}

// MockAlbumRepository is a mock implementation of AlbumRepository for testing
type MockAlbumRepository struct {
	mock.Mock
}

func (m *MockAlbumRepository) Upsert(ctx context.Context, album *models.Album) error {
	args := m.Called(ctx, album)
	return args.Error(0)
}

func (m *MockAlbumRepository) FindByID(ctx context.Context, id int64) (*models.Album, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Album), args.Error(1)
}

func (m *MockAlbumRepository) FindBySpotifyID(ctx context.Context, spotifyID string) (*models.Album, error) {
	args := m.Called(ctx, spotifyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Album), args.Error(1)
}

func (m *MockAlbumRepository) FindByArtistID(ctx context.Context, artistID int64) ([]*models.Album, error) {
	args := m.Called(ctx, artistID)
	return args.Get(0).([]*models.Album), args.Error(1)
}

func (m *MockAlbumRepository) Stats(ctx context.Context, albumID int64) (*models.AlbumStats, error) {
	args := m.Called(ctx, albumID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AlbumStats), args.Error(1)
}

func (m *MockAlbumRepository) PopularSince(ctx context.Context, since time.Time, limit int) ([]*models.Album, error) {
	args := m.Called(ctx, since, limit)
	return args.Get(0).([]*models.Album), args.Error(1)
}

func (m *MockAlbumRepository) SaveSummary(ctx context.Context, albumID int64, summary string) error {
	args := m.Called(ctx, albumID, summary)
	return args.Error(0)
}

// MockArtistRepository is a mock implementation of ArtistRepository for testing
type MockArtistRepository struct {
	mock.Mock
}

func (m *MockArtistRepository) Upsert(ctx context.Context, artist *models.Artist) error {
	args := m.Called(ctx, artist)
	return args.Error(0)
}

func (m *MockArtistRepository) FindByID(ctx context.Context, id int64) (*models.Artist, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Artist), args.Error(1)
}

func (m *MockArtistRepository) FindBySpotifyID(ctx context.Context, spotifyID string) (*models.Artist, error) {
	args := m.Called(ctx, spotifyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Artist), args.Error(1)
}

func (m *MockArtistRepository) SaveBio(ctx context.Context, artistID int64, bio string) error {
	args := m.Called(ctx, artistID, bio)
	return args.Error(0)
}

func (m *MockArtistRepository) Stats(ctx context.Context, artistID int64) (*models.ArtistStats, error) {
	args := m.Called(ctx, artistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ArtistStats), args.Error(1)
}

// MockGroupRepository is a mock implementation of GroupRepository for testing
type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) Create(ctx context.Context, group *models.Group) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockGroupRepository) Update(ctx context.Context, group *models.Group) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockGroupRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGroupRepository) FindByID(ctx context.Context, id int64) (*models.Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Group), args.Error(1)
}

func (m *MockGroupRepository) List(ctx context.Context, category string, userID int64, limit, offset int) ([]*models.Group, error) {
	args := m.Called(ctx, category, userID, limit, offset)
	return args.Get(0).([]*models.Group), args.Error(1)
}

func (m *MockGroupRepository) ListForUser(ctx context.Context, userID int64) ([]*models.Group, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*models.Group), args.Error(1)
}

func (m *MockGroupRepository) AddMember(ctx context.Context, groupID, userID int64, role string) error {
	args := m.Called(ctx, groupID, userID, role)
	return args.Error(0)
}

func (m *MockGroupRepository) RemoveMember(ctx context.Context, groupID, userID int64) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGroupRepository) UpdateRole(ctx context.Context, groupID, userID int64, role string) (bool, error) {
	args := m.Called(ctx, groupID, userID, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockGroupRepository) FindMember(ctx context.Context, groupID, userID int64) (*models.GroupMember, error) {
	args := m.Called(ctx, groupID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GroupMember), args.Error(1)
}

func (m *MockGroupRepository) ListMembers(ctx context.Context, groupID int64) ([]*models.GroupMember, error) {
	args := m.Called(ctx, groupID)
	return args.Get(0).([]*models.GroupMember), args.Error(1)
}

func (m *MockGroupRepository) CreateInvite(ctx context.Context, invite *models.GroupInvite) error {
	args := m.Called(ctx, invite)
	return args.Error(0)
}

func (m *MockGroupRepository) FindInvite(ctx context.Context, id int64) (*models.GroupInvite, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GroupInvite), args.Error(1)
}

func (m *MockGroupRepository) FindPendingInvite(ctx context.Context, groupID, inviteeID int64) (*models.GroupInvite, error) {
	args := m.Called(ctx, groupID, inviteeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GroupInvite), args.Error(1)
}

func (m *MockGroupRepository) UpdateInviteStatus(ctx context.Context, id int64, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockGroupRepository) ListInvitesForUser(ctx context.Context, inviteeID int64) ([]*models.GroupInvite, error) {
	args := m.Called(ctx, inviteeID)
	return args.Get(0).([]*models.GroupInvite), args.Error(1)
}

func (m *MockGroupRepository) CreateMessage(ctx context.Context, msg *models.GroupMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockGroupRepository) ListMessages(ctx context.Context, groupID int64, before int64, limit int) ([]*models.GroupMessage, error) {
	args := m.Called(ctx, groupID, before, limit)
	return args.Get(0).([]*models.GroupMessage), args.Error(1)
}

// MockDMRepository is a mock implementation of DMRepository for testing
type MockDMRepository struct {
	mock.Mock
}

func (m *MockDMRepository) GetOrCreateConversation(ctx context.Context, userA, userB int64) (*models.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockDMRepository) FindConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockDMRepository) ListConversations(ctx context.Context, userID int64) ([]*models.Conversation, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*models.Conversation), args.Error(1)
}

func (m *MockDMRepository) CreateMessage(ctx context.Context, msg *models.DirectMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockDMRepository) ListMessages(ctx context.Context, conversationID int64, before int64, limit int) ([]*models.DirectMessage, error) {
	args := m.Called(ctx, conversationID, before, limit)
	return args.Get(0).([]*models.DirectMessage), args.Error(1)
}

func (m *MockDMRepository) MarkRead(ctx context.Context, conversationID, userID int64) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *MockDMRepository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// MockOAuthRepository is a mock implementation of OAuthRepository for testing
type MockOAuthRepository struct {
	mock.Mock
}

func (m *MockOAuthRepository) Upsert(ctx context.Context, account *models.OAuthAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockOAuthRepository) FindByProviderUserID(ctx context.Context, provider, providerUserID string) (*models.OAuthAccount, error) {
	args := m.Called(ctx, provider, providerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OAuthAccount), args.Error(1)
}

func (m *MockOAuthRepository) FindByUserAndProvider(ctx context.Context, userID int64, provider string) (*models.OAuthAccount, error) {
	args := m.Called(ctx, userID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OAuthAccount), args.Error(1)
}

func (m *MockOAuthRepository) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	args := m.Called(ctx, id, accessToken, refreshToken, expiresAt)
	return args.Error(0)
}

func (m *MockOAuthRepository) Delete(ctx context.Context, userID int64, provider string) (bool, error) {
	args := m.Called(ctx, userID, provider)
	return args.Bool(0), args.Error(1)
}

func (m *MockOAuthRepository) ListByProvider(ctx context.Context, provider string) ([]*models.OAuthAccount, error) {
	args := m.Called(ctx, provider)
	return args.Get(0).([]*models.OAuthAccount), args.Error(1)
}

// MockScrobbleRepository is a mock implementation of ScrobbleRepository for testing
type MockScrobbleRepository struct {
	mock.Mock
}

func (m *MockScrobbleRepository) InsertBatch(ctx context.Context, scrobbles []*models.Scrobble) (int, error) {
	args := m.Called(ctx, scrobbles)
	return args.Int(0), args.Error(1)
}

func (m *MockScrobbleRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.Scrobble, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]*models.Scrobble), args.Error(1)
}

func (m *MockScrobbleRepository) Stats(ctx context.Context, userID int64, since time.Time, topN int) (*models.ListeningStats, error) {
	args := m.Called(ctx, userID, since, topN)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ListeningStats), args.Error(1)
}

func (m *MockScrobbleRepository) LatestPlayedAt(ctx context.Context, userID int64) (*time.Time, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

// MockChatRepository is a mock implementation of ChatRepository for testing
type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Append(ctx context.Context, msg *models.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockChatRepository) RecentHistory(ctx context.Context, userID int64, n int) ([]*models.ChatMessage, error) {
	args := m.Called(ctx, userID, n)
	return args.Get(0).([]*models.ChatMessage), args.Error(1)
}

func (m *MockChatRepository) RunReadOnlyQuery(ctx context.Context, query string) ([]map[string]any, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]any), args.Error(1)
}

// MockNotificationRepository is a mock implementation of NotificationRepository for testing
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListByRecipient(ctx context.Context, recipientID int64, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	args := m.Called(ctx, recipientID, unreadOnly, limit, offset)
	return args.Get(0).([]*models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, recipientID int64) (bool, error) {
	args := m.Called(ctx, id, recipientID)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, recipientID int64) error {
	args := m.Called(ctx, recipientID)
	return args.Error(0)
}

func (m *MockNotificationRepository) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	args := m.Called(ctx, recipientID)
	return args.Int(0), args.Error(1)
}
