package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"soundscore/internal/models"
	"soundscore/internal/testutil"
)

// fakeSpotifyCatalog serves canned albums and artists by ID
type fakeSpotifyCatalog struct {
	albums  map[string]*SpotifyAlbum
	artists map[string]*SpotifyArtist
}

func (f *fakeSpotifyCatalog) SearchAlbums(ctx context.Context, query string, limit int) ([]*SpotifyAlbum, error) {
	return nil, nil
}

func (f *fakeSpotifyCatalog) SearchArtists(ctx context.Context, query string, limit int) ([]*SpotifyArtist, error) {
	return nil, nil
}

func (f *fakeSpotifyCatalog) GetAlbum(ctx context.Context, spotifyID string) (*SpotifyAlbum, error) {
	if album, ok := f.albums[spotifyID]; ok {
		return album, nil
	}
	return nil, &PlatformError{Platform: "spotify", Operation: "get_album", Message: "not found"}
}

func (f *fakeSpotifyCatalog) GetArtist(ctx context.Context, spotifyID string) (*SpotifyArtist, error) {
	if artist, ok := f.artists[spotifyID]; ok {
		return artist, nil
	}
	return nil, &PlatformError{Platform: "spotify", Operation: "get_artist", Message: "not found"}
}

func (f *fakeSpotifyCatalog) Health(ctx context.Context) error { return nil }

func TestResolveAlbumReturnsExistingRow(t *testing.T) {
	albums := new(testutil.MockAlbumRepository)
	artists := new(testutil.MockArtistRepository)
	svc := NewCatalogService(&fakeSpotifyCatalog{}, albums, artists)

	existing := testutil.CreateTestAlbum()
	albums.On("FindBySpotifyID", mock.Anything, existing.SpotifyID).Return(existing, nil)

	album, err := svc.ResolveAlbum(context.Background(), existing.SpotifyID)
	require.NoError(t, err)
	assert.Equal(t, existing, album)

	// No catalog fetch, no insert
	albums.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestResolveAlbumCreatesFromSpotify(t *testing.T) {
	albums := new(testutil.MockAlbumRepository)
	artists := new(testutil.MockArtistRepository)
	spotify := &fakeSpotifyCatalog{
		albums: map[string]*SpotifyAlbum{
			"sp-album-1": {
				ID:          "sp-album-1",
				Name:        "In Rainbows",
				ReleaseDate: "2007-10-10",
				Artists:     []SpotifyArtist{{ID: "sp-artist-1", Name: "Radiohead"}},
				Images:      []SpotifyImage{{URL: "https://img/cover", Width: 640, Height: 640}},
			},
		},
		artists: map[string]*SpotifyArtist{
			"sp-artist-1": {ID: "sp-artist-1", Name: "Radiohead", Genres: []string{"art rock"}},
		},
	}
	svc := NewCatalogService(spotify, albums, artists)

	albums.On("FindBySpotifyID", mock.Anything, "sp-album-1").Return(nil, nil)
	artists.On("FindBySpotifyID", mock.Anything, "sp-artist-1").Return(nil, nil)
	artists.On("Upsert", mock.Anything, mock.AnythingOfType("*models.Artist")).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Artist).ID = 42
	}).Return(nil)
	albums.On("Upsert", mock.Anything, mock.AnythingOfType("*models.Album")).Return(nil)

	album, err := svc.ResolveAlbum(context.Background(), "sp-album-1")
	require.NoError(t, err)

	assert.Equal(t, "sp-album-1", album.SpotifyID)
	assert.Equal(t, "In Rainbows", album.Title)
	assert.Equal(t, "Radiohead", album.Artist)
	require.NotNil(t, album.ArtistID)
	assert.Equal(t, int64(42), *album.ArtistID)

	albums.AssertExpectations(t)
	artists.AssertExpectations(t)
}

func TestResolveAlbumSurvivesArtistFailure(t *testing.T) {
	albums := new(testutil.MockAlbumRepository)
	artists := new(testutil.MockArtistRepository)
	spotify := &fakeSpotifyCatalog{
		albums: map[string]*SpotifyAlbum{
			"sp-album-2": {
				ID:      "sp-album-2",
				Name:    "Unknown Pleasures",
				Artists: []SpotifyArtist{{ID: "missing-artist", Name: "Joy Division"}},
			},
		},
	}
	svc := NewCatalogService(spotify, albums, artists)

	albums.On("FindBySpotifyID", mock.Anything, "sp-album-2").Return(nil, nil)
	artists.On("FindBySpotifyID", mock.Anything, "missing-artist").Return(nil, nil)
	albums.On("Upsert", mock.Anything, mock.AnythingOfType("*models.Album")).Return(nil)

	album, err := svc.ResolveAlbum(context.Background(), "sp-album-2")
	require.NoError(t, err)
	assert.Nil(t, album.ArtistID)
	assert.Equal(t, "Joy Division", album.Artist)
}

func TestResolveAlbumUnknownID(t *testing.T) {
	albums := new(testutil.MockAlbumRepository)
	svc := NewCatalogService(&fakeSpotifyCatalog{}, albums, new(testutil.MockArtistRepository))

	albums.On("FindBySpotifyID", mock.Anything, "nope").Return(nil, nil)

	_, err := svc.ResolveAlbum(context.Background(), "nope")
	require.Error(t, err)

	var platformErr *PlatformError
	assert.ErrorAs(t, err, &platformErr)
}

func TestResolveArtistCreatesFromSpotify(t *testing.T) {
	artists := new(testutil.MockArtistRepository)
	spotify := &fakeSpotifyCatalog{
		artists: map[string]*SpotifyArtist{
			"sp-artist-9": {
				ID:     "sp-artist-9",
				Name:   "Björk",
				Genres: []string{"electronic", "art pop"},
				Images: []SpotifyImage{{URL: "https://img/artist", Width: 320}},
			},
		},
	}
	svc := NewCatalogService(spotify, new(testutil.MockAlbumRepository), artists)

	artists.On("FindBySpotifyID", mock.Anything, "sp-artist-9").Return(nil, nil)
	artists.On("Upsert", mock.Anything, mock.AnythingOfType("*models.Artist")).Return(nil)

	artist, err := svc.ResolveArtist(context.Background(), "sp-artist-9")
	require.NoError(t, err)
	assert.Equal(t, "Björk", artist.Name)
	assert.Equal(t, "https://img/artist", artist.ImageURL)
	artists.AssertExpectations(t)
}
