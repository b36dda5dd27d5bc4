package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"soundscore/internal/models"
	"soundscore/internal/services"
	"soundscore/internal/testutil"
)

type catalogHandlerFixture struct {
	albums  *testutil.MockAlbumRepository
	artists *testutil.MockArtistRepository
	reviews *testutil.MockReviewRepository
	handler *CatalogHandler
}

func newCatalogHandlerFixture() *catalogHandlerFixture {
	f := &catalogHandlerFixture{
		albums:  new(testutil.MockAlbumRepository),
		artists: new(testutil.MockArtistRepository),
		reviews: new(testutil.MockReviewRepository),
	}
	catalog := services.NewCatalogService(nil, f.albums, f.artists)
	f.handler = NewCatalogHandler(nil, catalog, nil, f.albums, f.artists, f.reviews)
	return f
}

func TestGetArtist(t *testing.T) {
	artist := &models.Artist{
		ID:        5,
		SpotifyID: testutil.SpotifyArtistID1,
		Name:      "Test Artist",
	}

	t.Run("returns albums and review aggregates", func(t *testing.T) {
		f := newCatalogHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		router := gin.New()
		router.GET("/artists/:spotifyID", f.handler.GetArtist)
		h.SetRouter(router)

		f.artists.On("FindBySpotifyID", mock.Anything, artist.SpotifyID).Return(artist, nil)
		f.albums.On("FindByArtistID", mock.Anything, int64(5)).
			Return([]*models.Album{testutil.CreateTestAlbum()}, nil)
		f.artists.On("Stats", mock.Anything, int64(5)).
			Return(&models.ArtistStats{ArtistID: 5, ReviewCount: 12, AverageRating: 4.2, FavoriteCount: 3}, nil)

		recorder := h.GetJSON("/artists/" + artist.SpotifyID)

		var body struct {
			Artist models.Artist      `json:"artist"`
			Albums []*models.Album    `json:"albums"`
			Stats  models.ArtistStats `json:"stats"`
		}
		h.AssertJSONResponse(recorder, http.StatusOK, &body)
		assert.Equal(t, "Test Artist", body.Artist.Name)
		assert.Len(t, body.Albums, 1)
		assert.Equal(t, 12, body.Stats.ReviewCount)
		assert.InDelta(t, 4.2, body.Stats.AverageRating, 0.001)
		f.artists.AssertExpectations(t)
	})

	t.Run("fails the page when aggregates cannot load", func(t *testing.T) {
		f := newCatalogHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		router := gin.New()
		router.GET("/artists/:spotifyID", f.handler.GetArtist)
		h.SetRouter(router)

		f.artists.On("FindBySpotifyID", mock.Anything, artist.SpotifyID).Return(artist, nil)
		f.albums.On("FindByArtistID", mock.Anything, int64(5)).Return([]*models.Album{}, nil)
		f.artists.On("Stats", mock.Anything, int64(5)).Return(nil, assert.AnError)

		recorder := h.GetJSON("/artists/" + artist.SpotifyID)
		h.AssertErrorResponse(recorder, http.StatusInternalServerError, "Failed to load artist")
	})
}
