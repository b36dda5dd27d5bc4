package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"

	"soundscore/internal/auth"
	"soundscore/internal/cache"
	"soundscore/internal/config"
	"soundscore/internal/handlers"
	"soundscore/internal/models"
	"soundscore/internal/repositories"
	"soundscore/internal/services"
	"soundscore/internal/ws"
)

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
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database and run migrations
	db, err := models.NewDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize cache
	appCache, err := cache.NewTieredCache(cfg.ValkeyURL, 1000)
	if err != nil {
		slog.Error("Failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer appCache.Close()

	// Repositories
	userRepo := repositories.NewCachedUserRepository(
		repositories.NewPostgresUserRepository(db), appCache, cfg.AuthCacheTTL())
	albumRepo := repositories.NewPostgresAlbumRepository(db)
	artistRepo := repositories.NewPostgresArtistRepository(db)
	reviewRepo := repositories.NewPostgresReviewRepository(db)
	commentRepo := repositories.NewPostgresCommentRepository(db)
	notificationRepo := repositories.NewPostgresNotificationRepository(db)
	groupRepo := repositories.NewPostgresGroupRepository(db)
	dmRepo := repositories.NewPostgresDMRepository(db)
	scrobbleRepo := repositories.NewPostgresScrobbleRepository(db)
	oauthRepo := repositories.NewPostgresOAuthRepository(db)
	chatRepo := repositories.NewPostgresChatRepository(db)
	recommendationRepo := repositories.NewPostgresRecommendationRepository(db)

	// Auth
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL(), cfg.ResetTokenTTL())
	middleware := auth.NewMiddleware(tokens, userRepo)

	// Services
	spotify := services.NewSpotifyService(cfg.SpotifyClientID, cfg.SpotifyClientSecret, appCache)
	catalog := services.NewCatalogService(spotify, albumRepo, artistRepo)
	notifications := services.NewNotificationService(notificationRepo)
	recommendations := services.NewRecommendationService(recommendationRepo, userRepo, appCache)

	var spotifyOAuth, googleOAuth *oauth2.Config
	if cfg.SpotifyEnabled() {
		spotifyOAuth = services.SpotifyOAuthConfig(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURL)
	}
	if cfg.GoogleLoginEnabled() {
		googleOAuth = services.GoogleOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	}
	oauthService := services.NewOAuthService(spotifyOAuth, googleOAuth, oauthRepo, userRepo)
	scrobbles := services.NewScrobbleService(oauthService, oauthRepo, scrobbleRepo)

	var email *services.EmailService
	if cfg.EmailEnabled() {
		email = services.NewEmailService(cfg.ResendAPIKey, cfg.EmailFrom, cfg.FrontendURL)
	}

	var storage *services.StorageService
	if cfg.StorageEnabled() {
		storage = services.NewStorageService(cfg.SupabaseURL, cfg.SupabaseServiceKey, appCache,
			cfg.MaxUploadBytes, cfg.ImageTypeAllowed)
	}

	var gemini *services.GeminiService
	var chatbot *services.ChatbotService
	if cfg.ChatbotEnabled() {
		gemini, err = services.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		chatbot = services.NewChatbotService(gemini, chatRepo)
	}

	// Recommendation weights reload without a restart
	config.StartRecommendationConfigWatcher(ctx, time.Minute)

	// Background scrobble sync
	if cfg.SpotifyEnabled() {
		scheduler := services.NewScrobbleScheduler(scrobbles, cfg.ScrobbleSyncInterval)
		go scheduler.Start(ctx)
	}

	hub := ws.NewHub()

	var chatbotHandler *handlers.ChatbotHandler
	if chatbot != nil {
		chatbotHandler = handlers.NewChatbotHandler(chatbot)
	}

	router := handlers.NewRouter(&handlers.Handlers{
		Auth:          handlers.NewAuthHandler(userRepo, tokens, email, appCache),
		Users:         handlers.NewUserHandler(userRepo, storage, notifications),
		Catalog:       handlers.NewCatalogHandler(spotify, catalog, gemini, albumRepo, artistRepo, reviewRepo),
		Reviews:       handlers.NewReviewHandler(reviewRepo, commentRepo, catalog, notifications),
		Home:          handlers.NewHomeHandler(reviewRepo, albumRepo, recommendations, appCache),
		Groups:        handlers.NewGroupHandler(groupRepo, storage, notifications),
		DMs:           handlers.NewDMHandler(dmRepo, userRepo, hub, storage),
		Library:       handlers.NewLibraryHandler(scrobbleRepo, oauthRepo, oauthService, scrobbles, appCache, cfg.FrontendURL),
		Chatbot:       chatbotHandler,
		Notifications: handlers.NewNotificationHandler(notifications),
		GroupChat:     ws.NewGroupChatHandler(hub, tokens, userRepo, groupRepo),
		DMChat:        ws.NewDMChatHandler(hub, tokens, userRepo, dmRepo),
		Middleware:    middleware,
		Tokens:        tokens,
		DB:            db,
		Cache:         appCache,
		FrontendURL:   cfg.FrontendURL,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE and WebSocket connections stay open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}
