package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundscore/internal/testutil"
)

func imageTypesOnly(contentType string) bool {
	return contentType == "image/jpeg" || contentType == "image/png"
}

func TestValidateUpload(t *testing.T) {
	svc := NewStorageService("https://example.supabase.co", "key", testutil.NewMemoryCache(), 1024, imageTypesOnly)

	assert.NoError(t, svc.ValidateUpload(512, "image/jpeg"))
	assert.Error(t, svc.ValidateUpload(0, "image/jpeg"), "empty file")
	assert.Error(t, svc.ValidateUpload(2048, "image/jpeg"), "over the size cap")
	assert.Error(t, svc.ValidateUpload(512, "application/pdf"), "disallowed type")
}

func TestUpload(t *testing.T) {
	var gotPath, gotContentType, gotUpsert string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotUpsert = r.Header.Get("x-upsert")
		testutil.RespondJSON(w, http.StatusOK, map[string]string{"Key": "ok"})
	}))
	defer upstream.Close()

	svc := NewStorageService(upstream.URL, "service-key", testutil.NewMemoryCache(), 1<<20, imageTypesOnly)

	path, err := svc.Upload(context.Background(), BucketProfilePictures, 7, "avatar.PNG", "image/png", []byte("fake-image"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, "7/"), "object path starts with the user ID")
	assert.True(t, strings.HasSuffix(path, ".png"), "extension survives lowercased")
	assert.Equal(t, "/storage/v1/object/profile_pictures/"+path, gotPath)
	assert.Equal(t, "image/png", gotContentType)
	assert.Equal(t, "true", gotUpsert)
}

func TestUploadRejectsInvalidFileBeforeSending(t *testing.T) {
	called := false
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer upstream.Close()

	svc := NewStorageService(upstream.URL, "key", testutil.NewMemoryCache(), 4, imageTypesOnly)

	_, err := svc.Upload(context.Background(), BucketProfilePictures, 1, "big.png", "image/png", []byte("way too large"))
	require.Error(t, err)
	assert.False(t, called, "nothing should hit the wire")
}

func TestSignedURLCaches(t *testing.T) {
	signCalls := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/storage/v1/object/sign/") {
			signCalls++
			testutil.RespondJSON(w, http.StatusOK, map[string]string{
				"signedURL": "/sign/banner_images/1/pic.png?token=abc",
			})
			return
		}
		http.NotFound(w, r)
	}))
	defer upstream.Close()

	svc := NewStorageService(upstream.URL, "key", testutil.NewMemoryCache(), 1<<20, imageTypesOnly)

	url, err := svc.SignedURL(context.Background(), BucketBannerImages, "1/pic.png")
	require.NoError(t, err)
	assert.Equal(t, upstream.URL+"/storage/v1/sign/banner_images/1/pic.png?token=abc", url)

	// Second call comes from cache
	again, err := svc.SignedURL(context.Background(), BucketBannerImages, "1/pic.png")
	require.NoError(t, err)
	assert.Equal(t, url, again)
	assert.Equal(t, 1, signCalls)
}

func TestDeleteToleratesMissingObject(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer upstream.Close()

	svc := NewStorageService(upstream.URL, "key", testutil.NewMemoryCache(), 1<<20, imageTypesOnly)
	assert.NoError(t, svc.Delete(context.Background(), BucketProfilePictures, "7/gone.png"))
}
