package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"soundscore/internal/cache"
	"soundscore/internal/config"
	"soundscore/internal/models"
	"soundscore/internal/repositories"
	"soundscore/internal/services"
)

// One-shot scrobble sync across every linked Spotify account. Useful for
// cron-style deployments where the in-process scheduler is disabled.
func main() {
	// Load .env file for local development
	_ = godotenv.Load()

	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if !cfg.SpotifyEnabled() {
		slog.Error("Spotify credentials are not configured")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	// Initialize database
	db, err := models.NewDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize cache
	appCache, err := cache.NewTieredCache(cfg.ValkeyURL, 1000)
	if err != nil {
		slog.Error("Failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer appCache.Close()

	oauthRepo := repositories.NewPostgresOAuthRepository(db)
	scrobbleRepo := repositories.NewPostgresScrobbleRepository(db)

	spotifyOAuth := services.SpotifyOAuthConfig(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURL)
	oauthService := services.NewOAuthService(spotifyOAuth, nil, oauthRepo, repositories.NewPostgresUserRepository(db))
	scrobbles := services.NewScrobbleService(oauthService, oauthRepo, scrobbleRepo)

	slog.Info("Starting scrobble sync")
	start := time.Now()

	inserted, err := scrobbles.SyncAll(ctx)
	if err != nil {
		slog.Error("Scrobble sync failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Scrobble sync completed",
		"new_scrobbles", inserted,
		"duration", time.Since(start).String())

	fmt.Printf("Sync completed: %d new scrobbles\n", inserted)
}
