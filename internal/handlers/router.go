package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"soundscore/internal/auth"
	"soundscore/internal/cache"
	"soundscore/internal/models"
	"soundscore/internal/ws"
)

// Handlers bundles everything the router wires up. Optional integrations
// are nil when unconfigured and their routes respond 503 or are skipped.
type Handlers struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Catalog       *CatalogHandler
	Reviews       *ReviewHandler
	Home          *HomeHandler
	Groups        *GroupHandler
	DMs           *DMHandler
	Library       *LibraryHandler
	Chatbot       *ChatbotHandler
	Notifications *NotificationHandler

	GroupChat *ws.GroupChatHandler
	DMChat    *ws.DMChatHandler

	Middleware *auth.Middleware
	Tokens     *auth.TokenService

	DB    *models.Database
	Cache cache.Cache

	// FrontendURL is the single origin allowed by CORS
	FrontendURL string
}

// NewRouter builds the gin engine with all routes registered
func NewRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{h.FrontendURL}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", h.health)

	v1 := router.Group("/api/v1")

	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/register", h.Auth.Register)
		authRoutes.POST("/login", h.Auth.Login)
		authRoutes.POST("/refresh", h.Auth.Refresh)
		authRoutes.POST("/forgot-password", h.Auth.ForgotPassword)
		authRoutes.POST("/reset-password", h.Auth.ResetPassword)
		authRoutes.POST("/logout", h.Middleware.RequireUser(), h.Auth.Logout)
		authRoutes.GET("/me", h.Middleware.RequireUser(), h.Auth.Me)
		authRoutes.GET("/google", h.Library.GoogleLogin)
		authRoutes.GET("/google/callback", h.Library.GoogleCallback(h.Tokens))
	}

	users := v1.Group("/users")
	{
		users.GET("/search", h.Users.Search)
		users.GET("/suggestions", h.Middleware.RequireUser(), h.Home.SuggestedUsers)
		users.PATCH("/me", h.Middleware.RequireUser(), h.Users.UpdateMe)
		users.POST("/me/profile-picture", h.Middleware.RequireUser(), h.Users.UploadProfilePicture)
		users.POST("/me/banner", h.Middleware.RequireUser(), h.Users.UploadBanner)
		users.GET("/:id", h.Middleware.OptionalUser(), h.Users.GetProfile)
		users.GET("/:id/reviews", h.Middleware.OptionalUser(), h.Reviews.ListByUser)
		users.GET("/:id/followers", h.Users.Followers)
		users.GET("/:id/following", h.Users.Following)
		users.POST("/:id/follow", h.Middleware.RequireUser(), h.Users.Follow)
		users.DELETE("/:id/follow", h.Middleware.RequireUser(), h.Users.Unfollow)
	}

	catalog := v1.Group("/catalog")
	{
		catalog.GET("/albums/search", h.Catalog.SearchAlbums)
		catalog.GET("/artists/search", h.Catalog.SearchArtists)
	}
	v1.GET("/albums/:spotifyID", h.Middleware.OptionalUser(), h.Catalog.GetAlbum)
	v1.GET("/artists/:spotifyID", h.Catalog.GetArtist)

	reviews := v1.Group("/reviews")
	{
		reviews.POST("", h.Middleware.RequireUser(), h.Reviews.Create)
		reviews.GET("/u/:uuid", h.Middleware.OptionalUser(), h.Reviews.GetByUUID)
		reviews.GET("/:id", h.Middleware.OptionalUser(), h.Reviews.Get)
		reviews.PATCH("/:id", h.Middleware.RequireUser(), h.Reviews.Update)
		reviews.DELETE("/:id", h.Middleware.RequireUser(), h.Reviews.Delete)
		reviews.POST("/:id/like", h.Middleware.RequireUser(), h.Reviews.Like)
		reviews.DELETE("/:id/like", h.Middleware.RequireUser(), h.Reviews.Unlike)
		reviews.GET("/:id/comments", h.Middleware.OptionalUser(), h.Reviews.ListComments)
		reviews.POST("/:id/comments", h.Middleware.RequireUser(), h.Reviews.CreateComment)
	}

	comments := v1.Group("/comments", h.Middleware.RequireUser())
	{
		comments.DELETE("/:id", h.Reviews.DeleteComment)
		comments.POST("/:id/like", h.Reviews.LikeComment)
		comments.DELETE("/:id/like", h.Reviews.UnlikeComment)
	}

	v1.GET("/feed", h.Middleware.RequireUser(), h.Home.Feed)
	v1.GET("/home", h.Middleware.RequireUser(), h.Home.Home)

	groups := v1.Group("/groups")
	{
		groups.GET("", h.Middleware.OptionalUser(), h.Groups.List)
		groups.POST("", h.Middleware.RequireUser(), h.Groups.Create)
		groups.GET("/mine", h.Middleware.RequireUser(), h.Groups.ListMine)
		groups.GET("/invites", h.Middleware.RequireUser(), h.Groups.ListInvites)
		groups.POST("/invites/:id/accept", h.Middleware.RequireUser(), h.Groups.RespondInvite(true))
		groups.POST("/invites/:id/decline", h.Middleware.RequireUser(), h.Groups.RespondInvite(false))
		groups.GET("/:id", h.Middleware.OptionalUser(), h.Groups.Get)
		groups.PATCH("/:id", h.Middleware.RequireUser(), h.Groups.Update)
		groups.DELETE("/:id", h.Middleware.RequireUser(), h.Groups.Delete)
		groups.POST("/:id/join", h.Middleware.RequireUser(), h.Groups.Join)
		groups.POST("/:id/leave", h.Middleware.RequireUser(), h.Groups.Leave)
		groups.DELETE("/:id/members/:userID", h.Middleware.RequireUser(), h.Groups.RemoveMember)
		groups.PATCH("/:id/members/:userID", h.Middleware.RequireUser(), h.Groups.UpdateRole)
		groups.POST("/:id/invites", h.Middleware.RequireUser(), h.Groups.Invite)
		groups.GET("/:id/messages", h.Middleware.RequireUser(), h.Groups.ListMessages)
		groups.POST("/:id/cover", h.Middleware.RequireUser(), h.Groups.UploadCover)
		groups.POST("/:id/messages/image", h.Middleware.RequireUser(), h.Groups.UploadMessageImage)
	}

	dm := v1.Group("/dm", h.Middleware.RequireUser())
	{
		dm.GET("/conversations", h.DMs.ListConversations)
		dm.POST("/conversations", h.DMs.StartConversation)
		dm.GET("/conversations/:id/messages", h.DMs.ListMessages)
		dm.POST("/conversations/:id/messages", h.DMs.SendMessage)
		dm.POST("/conversations/:id/image", h.DMs.UploadImage)
		dm.POST("/conversations/:id/read", h.DMs.MarkRead)
		dm.GET("/unread-count", h.DMs.UnreadCount)
	}

	library := v1.Group("/library")
	{
		library.GET("/scrobbles", h.Middleware.RequireUser(), h.Library.ListScrobbles)
		library.GET("/stats", h.Middleware.RequireUser(), h.Library.Stats)
		library.POST("/sync", h.Middleware.RequireUser(), h.Library.SyncNow)
		library.GET("/spotify", h.Middleware.RequireUser(), h.Library.SpotifyStatus)
		library.GET("/spotify/link", h.Library.LinkSpotify)
		library.GET("/spotify/callback", h.Library.SpotifyCallback(h.Tokens))
		library.DELETE("/spotify", h.Middleware.RequireUser(), h.Library.UnlinkSpotify)
	}

	if h.Chatbot != nil {
		chatbot := v1.Group("/chatbot", h.Middleware.RequireUser())
		chatbot.POST("/ask", h.Chatbot.Ask)
		chatbot.GET("/history", h.Chatbot.History)
	}

	notifications := v1.Group("/notifications")
	{
		notifications.GET("", h.Middleware.RequireUser(), h.Notifications.List)
		notifications.GET("/unread-count", h.Middleware.RequireUser(), h.Notifications.UnreadCount)
		notifications.POST("/:id/read", h.Middleware.RequireUser(), h.Notifications.MarkRead)
		notifications.POST("/read-all", h.Middleware.RequireUser(), h.Notifications.MarkAllRead)
		notifications.GET("/stream", h.Middleware.RequireQueryToken(), h.Notifications.Stream)
	}

	router.GET("/ws/groups/:id", h.GroupChat.Serve)
	router.GET("/ws/dm/:id", h.DMChat.Serve)

	return router
}

// health handles GET /health with dependency checks
func (h *Handlers) health(c *gin.Context) {
	ctx := c.Request.Context()

	status := http.StatusOK
	checks := gin.H{}

	start := time.Now()
	if err := h.DB.Health(ctx); err != nil {
		status = http.StatusServiceUnavailable
		checks["database"] = gin.H{"status": "down", "error": err.Error()}
	} else {
		checks["database"] = gin.H{"status": "up", "latency_ms": time.Since(start).Milliseconds()}
	}

	start = time.Now()
	if err := h.Cache.Health(ctx); err != nil {
		status = http.StatusServiceUnavailable
		checks["cache"] = gin.H{"status": "down", "error": err.Error()}
	} else {
		checks["cache"] = gin.H{"status": "up", "latency_ms": time.Since(start).Milliseconds()}
	}

	c.JSON(status, gin.H{"status": statusWord(status), "checks": checks})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}
