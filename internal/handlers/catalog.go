package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"soundscore/internal/auth"
	"soundscore/internal/models"
	"soundscore/internal/repositories"
	"soundscore/internal/services"
)

// aiTextMaxAge is how old generated summaries and bios may get before a
// page view regenerates them.
const aiTextMaxAge = 30 * 24 * time.Hour

// CatalogHandler serves album and artist pages backed by the Spotify
// catalog and the local database.
type CatalogHandler struct {
	spotify services.SpotifyCatalog
	catalog *services.CatalogService
	gemini  *services.GeminiService
	albums  repositories.AlbumRepository
	artists repositories.ArtistRepository
	reviews repositories.ReviewRepository
}

// NewCatalogHandler creates a new catalog handler. gemini may be nil when
// the integration is not configured.
func NewCatalogHandler(spotify services.SpotifyCatalog, catalog *services.CatalogService, gemini *services.GeminiService,
	albums repositories.AlbumRepository, artists repositories.ArtistRepository, reviews repositories.ReviewRepository) *CatalogHandler {
	return &CatalogHandler{
		spotify: spotify,
		catalog: catalog,
		gemini:  gemini,
		albums:  albums,
		artists: artists,
		reviews: reviews,
	}
}

// SearchAlbums handles GET /api/v1/catalog/albums/search?q=
func (h *CatalogHandler) SearchAlbums(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter q is required"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	albums, err := h.spotify.SearchAlbums(c.Request.Context(), query, limit)
	if err != nil {
		slog.Error("Album search failed", "query", query, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Catalog search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"albums": albums})
}

// SearchArtists handles GET /api/v1/catalog/artists/search?q=
func (h *CatalogHandler) SearchArtists(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter q is required"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	artists, err := h.spotify.SearchArtists(c.Request.Context(), query, limit)
	if err != nil {
		slog.Error("Artist search failed", "query", query, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Catalog search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"artists": artists})
}

// GetAlbum handles GET /api/v1/albums/:spotifyID. Resolves the album into
// the local catalog and returns it with stats and reviews.
func (h *CatalogHandler) GetAlbum(c *gin.Context) {
	spotifyID := c.Param("spotifyID")
	if spotifyID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing album ID"})
		return
	}

	album, err := h.catalog.ResolveAlbum(c.Request.Context(), spotifyID)
	if err != nil {
		slog.Error("Failed to resolve album", "spotify_id", spotifyID, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Album not found"})
		return
	}

	h.ensureAlbumSummary(c, album)

	stats, err := h.albums.Stats(c.Request.Context(), album.ID)
	if err != nil {
		slog.Error("Failed to load album stats", "album_id", album.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load album"})
		return
	}

	var viewerID int64
	if viewer := auth.CurrentUser(c); viewer != nil {
		viewerID = viewer.ID
	}
	limit, offset := pagination(c)
	reviews, err := h.reviews.ListByAlbum(c.Request.Context(), album.ID, viewerID, limit, offset)
	if err != nil {
		slog.Error("Failed to load album reviews", "album_id", album.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load album"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"album": album, "stats": stats, "reviews": reviews})
}

// GetArtist handles GET /api/v1/artists/:spotifyID
func (h *CatalogHandler) GetArtist(c *gin.Context) {
	spotifyID := c.Param("spotifyID")
	if spotifyID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing artist ID"})
		return
	}

	artist, err := h.catalog.ResolveArtist(c.Request.Context(), spotifyID)
	if err != nil {
		slog.Error("Failed to resolve artist", "spotify_id", spotifyID, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Artist not found"})
		return
	}

	h.ensureArtistBio(c, artist)

	albums, err := h.albums.FindByArtistID(c.Request.Context(), artist.ID)
	if err != nil {
		slog.Error("Failed to load artist albums", "artist_id", artist.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load artist"})
		return
	}

	stats, err := h.artists.Stats(c.Request.Context(), artist.ID)
	if err != nil {
		slog.Error("Failed to load artist stats", "artist_id", artist.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load artist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"artist": artist, "albums": albums, "stats": stats})
}

func (h *CatalogHandler) ensureAlbumSummary(c *gin.Context, album *models.Album) {
	if h.gemini == nil || !album.SummaryStale(aiTextMaxAge) {
		return
	}

	summary, err := h.gemini.AlbumSummary(c.Request.Context(), album.Title, album.Artist, album.ReleaseDate, album.Genres)
	if err != nil {
		slog.Warn("Failed to generate album summary", "album_id", album.ID, "error", err)
		return
	}
	if err := h.albums.SaveSummary(c.Request.Context(), album.ID, summary); err != nil {
		slog.Warn("Failed to save album summary", "album_id", album.ID, "error", err)
		return
	}
	album.AISummary = summary
	now := time.Now()
	album.SummaryGeneratedAt = &now
}

func (h *CatalogHandler) ensureArtistBio(c *gin.Context, artist *models.Artist) {
	if h.gemini == nil || !artist.BioStale(aiTextMaxAge) {
		return
	}

	bio, err := h.gemini.ArtistBio(c.Request.Context(), artist.Name, artist.Genres)
	if err != nil {
		slog.Warn("Failed to generate artist bio", "artist_id", artist.ID, "error", err)
		return
	}
	if err := h.artists.SaveBio(c.Request.Context(), artist.ID, bio); err != nil {
		slog.Warn("Failed to save artist bio", "artist_id", artist.ID, "error", err)
		return
	}
	artist.AIBio = bio
	now := time.Now()
	artist.BioGeneratedAt = &now
}
