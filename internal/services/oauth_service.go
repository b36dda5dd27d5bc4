package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/spotify"

	"soundscore/internal/models"
	"soundscore/internal/repositories"
)

// Scopes requested when a user links their Spotify account. Recently
// played history drives scrobbling.
var spotifyUserScopes = []string{"user-read-email", "user-read-recently-played"}

var googleScopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// OAuthService handles per-user OAuth flows: Google sign-in and Spotify
// account linking.
type OAuthService struct {
	spotifyConfig *oauth2.Config
	googleConfig  *oauth2.Config
	client        *resty.Client
	accounts      repositories.OAuthRepository
	users         repositories.UserRepository
}

// NewOAuthService creates a new OAuth service. Either provider config may
// be nil when that provider is not configured.
func NewOAuthService(spotifyCfg, googleCfg *oauth2.Config, accounts repositories.OAuthRepository, users repositories.UserRepository) *OAuthService {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &OAuthService{
		spotifyConfig: spotifyCfg,
		googleConfig:  googleCfg,
		client:        client,
		accounts:      accounts,
		users:         users,
	}
}

// SpotifyOAuthConfig builds the authorization-code config for Spotify
func SpotifyOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       spotifyUserScopes,
		Endpoint:     spotify.Endpoint,
	}
}

// GoogleOAuthConfig builds the authorization-code config for Google
func GoogleOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       googleScopes,
		Endpoint:     google.Endpoint,
	}
}

// SpotifyAuthURL returns the Spotify consent page URL
func (s *OAuthService) SpotifyAuthURL(state string) (string, error) {
	if s.spotifyConfig == nil {
		return "", &PlatformError{Platform: "spotify", Operation: "authorize", Message: "not configured"}
	}
	return s.spotifyConfig.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// GoogleAuthURL returns the Google consent page URL
func (s *OAuthService) GoogleAuthURL(state string) (string, error) {
	if s.googleConfig == nil {
		return "", &PlatformError{Platform: "google", Operation: "authorize", Message: "not configured"}
	}
	return s.googleConfig.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// LinkSpotify exchanges the callback code and stores the link for userID.
// Returns ErrDuplicate via the repository when the Spotify account is
// already linked to someone else.
func (s *OAuthService) LinkSpotify(ctx context.Context, userID int64, code string) (*models.OAuthAccount, error) {
	if s.spotifyConfig == nil {
		return nil, &PlatformError{Platform: "spotify", Operation: "link", Message: "not configured"}
	}

	token, err := s.spotifyConfig.Exchange(ctx, code)
	if err != nil {
		return nil, &PlatformError{Platform: "spotify", Operation: "link", Message: "code exchange failed", Err: err}
	}

	profile, err := s.spotifyProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	account := &models.OAuthAccount{
		UserID:         userID,
		Provider:       models.OAuthProviderSpotify,
		ProviderUserID: profile.ID,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: token.Expiry,
	}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// UnlinkSpotify removes the user's Spotify link
func (s *OAuthService) UnlinkSpotify(ctx context.Context, userID int64) (bool, error) {
	return s.accounts.Delete(ctx, userID, models.OAuthProviderSpotify)
}

// LoginWithGoogle exchanges the callback code and returns the matching
// user, creating one on first login.
func (s *OAuthService) LoginWithGoogle(ctx context.Context, code string) (*models.User, error) {
	if s.googleConfig == nil {
		return nil, &PlatformError{Platform: "google", Operation: "login", Message: "not configured"}
	}

	token, err := s.googleConfig.Exchange(ctx, code)
	if err != nil {
		return nil, &PlatformError{Platform: "google", Operation: "login", Message: "code exchange failed", Err: err}
	}

	profile, err := s.googleProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	// An existing link wins, then an email match, then a new account.
	if account, err := s.accounts.FindByProviderUserID(ctx, models.OAuthProviderGoogle, profile.ID); err != nil {
		return nil, err
	} else if account != nil {
		return s.users.FindByID(ctx, account.UserID)
	}

	user, err := s.users.FindByEmail(ctx, profile.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = models.NewUser(s.usernameFromEmail(ctx, profile.Email), profile.Email, "")
		user.ProfilePictureURL = profile.Picture
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
	}

	account := &models.OAuthAccount{
		UserID:         user.ID,
		Provider:       models.OAuthProviderGoogle,
		ProviderUserID: profile.ID,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: token.Expiry,
	}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		return nil, err
	}
	return user, nil
}

// FreshSpotifyToken returns a valid access token for the linked account,
// refreshing and persisting it when expired.
func (s *OAuthService) FreshSpotifyToken(ctx context.Context, account *models.OAuthAccount) (string, error) {
	if !account.TokenExpired() {
		return account.AccessToken, nil
	}
	if s.spotifyConfig == nil {
		return "", &PlatformError{Platform: "spotify", Operation: "refresh", Message: "not configured"}
	}
	if account.RefreshToken == "" {
		return "", &PlatformError{Platform: "spotify", Operation: "refresh", Message: "no refresh token stored"}
	}

	source := s.spotifyConfig.TokenSource(ctx, &oauth2.Token{
		RefreshToken: account.RefreshToken,
		Expiry:       account.TokenExpiresAt,
	})
	token, err := source.Token()
	if err != nil {
		return "", &PlatformError{Platform: "spotify", Operation: "refresh", Message: "token refresh failed", Err: err}
	}

	if err := s.accounts.UpdateTokens(ctx, account.ID, token.AccessToken, token.RefreshToken, token.Expiry); err != nil {
		return "", err
	}
	account.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		account.RefreshToken = token.RefreshToken
	}
	account.TokenExpiresAt = token.Expiry
	return token.AccessToken, nil
}

type spotifyProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (s *OAuthService) spotifyProfile(ctx context.Context, accessToken string) (*spotifyProfile, error) {
	var profile spotifyProfile
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&profile).
		Get(spotifyAPIURL + "/me")
	if err != nil {
		return nil, &PlatformError{Platform: "spotify", Operation: "profile", Message: "request failed", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &PlatformError{
			Platform:  "spotify",
			Operation: "profile",
			Message:   fmt.Sprintf("API returned status %d", resp.StatusCode()),
		}
	}
	return &profile, nil
}

type googleProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (s *OAuthService) googleProfile(ctx context.Context, accessToken string) (*googleProfile, error) {
	var profile googleProfile
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&profile).
		Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, &PlatformError{Platform: "google", Operation: "profile", Message: "request failed", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &PlatformError{
			Platform:  "google",
			Operation: "profile",
			Message:   fmt.Sprintf("API returned status %d", resp.StatusCode()),
		}
	}
	if profile.Email == "" {
		return nil, &PlatformError{Platform: "google", Operation: "profile", Message: "no email in profile"}
	}
	return &profile, nil
}

// usernameFromEmail derives a free username from the email local part,
// suffixing a counter on collision.
func (s *OAuthService) usernameFromEmail(ctx context.Context, email string) string {
	base := strings.ToLower(strings.SplitN(email, "@", 2)[0])
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, base)
	if base == "" {
		base = "listener"
	}

	candidate := base
	for i := 2; i < 100; i++ {
		existing, err := s.users.FindByUsername(ctx, candidate)
		if err != nil || existing == nil {
			return candidate
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return fmt.Sprintf("%s%d", base, time.Now().Unix()%100000)
}
