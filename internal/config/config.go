package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// OAuthProvider identifies a supported external identity provider.
type OAuthProvider string

const (
	ProviderGoogle  OAuthProvider = "google"
	ProviderSpotify OAuthProvider = "spotify"
)

// Config holds all configuration for the application
type Config struct {
	// Application settings
	Port        string `envconfig:"PORT" default:"8080"`
	GinMode     string `envconfig:"GIN_MODE" default:"debug"`
	BaseURL     string `envconfig:"BASE_URL" default:"http://localhost:8080"`
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:5173"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	ValkeyURL   string `envconfig:"VALKEY_URL" required:"true"`

	// JWT settings
	JWTSecret              string `envconfig:"JWT_SECRET" required:"true"`
	AccessTokenMinutes     int    `envconfig:"ACCESS_TOKEN_EXPIRE_MINUTES" default:"30"`
	RefreshTokenMinutes    int    `envconfig:"REFRESH_TOKEN_EXPIRE_MINUTES" default:"10080"`
	ResetTokenMinutes      int    `envconfig:"PASSWORD_RESET_EXPIRE_MINUTES" default:"15"`
	AuthCacheSeconds       int    `envconfig:"AUTH_CACHE_SECONDS" default:"120"`

	// Spotify (catalog + scrobbling)
	SpotifyClientID     string `envconfig:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `envconfig:"SPOTIFY_CLIENT_SECRET"`
	SpotifyRedirectURL  string `envconfig:"SPOTIFY_REDIRECT_URL"`

	// Google OAuth login
	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `envconfig:"GOOGLE_REDIRECT_URL"`

	// Gemini chatbot
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	// Supabase object storage
	SupabaseURL        string `envconfig:"SUPABASE_URL"`
	SupabaseServiceKey string `envconfig:"SUPABASE_SERVICE_KEY"`

	// Resend email
	ResendAPIKey string `envconfig:"RESEND_API_KEY"`
	EmailFrom    string `envconfig:"EMAIL_FROM" default:"SoundScore <noreply@soundscore.app>"`

	// Uploads
	MaxUploadBytes    int64    `envconfig:"MAX_UPLOAD_BYTES" default:"5242880"`
	AllowedImageTypes []string `envconfig:"ALLOWED_IMAGE_TYPES" default:"image/jpeg,image/png,image/webp"`

	// Background scrobble sync
	ScrobbleSyncInterval time.Duration `envconfig:"SCROBBLE_SYNC_INTERVAL" default:"1h"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.AccessTokenMinutes <= 0 || c.RefreshTokenMinutes <= 0 || c.ResetTokenMinutes <= 0 {
		return fmt.Errorf("token expiries must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.ScrobbleSyncInterval < time.Minute {
		return fmt.Errorf("SCROBBLE_SYNC_INTERVAL must be at least one minute")
	}
	return nil
}

// AccessTokenTTL returns the access token lifetime
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenMinutes) * time.Minute
}

// ResetTokenTTL returns the password reset token lifetime
func (c *Config) ResetTokenTTL() time.Duration {
	return time.Duration(c.ResetTokenMinutes) * time.Minute
}

// AuthCacheTTL returns how long authenticated user lookups stay cached
func (c *Config) AuthCacheTTL() time.Duration {
	return time.Duration(c.AuthCacheSeconds) * time.Second
}

// SpotifyEnabled reports whether Spotify credentials are configured
func (c *Config) SpotifyEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

// GoogleLoginEnabled reports whether Google OAuth login is configured
func (c *Config) GoogleLoginEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// ChatbotEnabled reports whether the Gemini assistant is configured
func (c *Config) ChatbotEnabled() bool {
	return c.GeminiAPIKey != ""
}

// StorageEnabled reports whether Supabase storage is configured
func (c *Config) StorageEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceKey != ""
}

// EmailEnabled reports whether the Resend integration is configured
func (c *Config) EmailEnabled() bool {
	return c.ResendAPIKey != ""
}

// ImageTypeAllowed checks an upload content type against the allow list
func (c *Config) ImageTypeAllowed(contentType string) bool {
	for _, t := range c.AllowedImageTypes {
		if t == contentType {
			return true
		}
	}
	return false
}
