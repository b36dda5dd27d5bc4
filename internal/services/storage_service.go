package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"soundscore/internal/cache"
)

// Storage buckets
const (
	BucketProfilePictures    = "profile_pictures"
	BucketBannerImages       = "banner_images"
	BucketGroupCovers        = "groups_cover_images"
	BucketGroupMessageImages = "group_message_images"
	BucketDMImages           = "dm_message_images"
)

// signedURLSeconds is the lifetime requested from Supabase. The cached
// copy expires earlier so callers never receive a dead link.
const signedURLSeconds = 3600

// StorageService uploads images to Supabase storage and issues signed URLs.
type StorageService struct {
	client  *resty.Client
	baseURL string
	cache   cache.Cache

	maxUploadBytes int64
	typeAllowed    func(contentType string) bool
}

// NewStorageService creates a new Supabase storage service
func NewStorageService(supabaseURL, serviceKey string, c cache.Cache, maxUploadBytes int64, typeAllowed func(string) bool) *StorageService {
	client := resty.New().
		SetBaseURL(strings.TrimRight(supabaseURL, "/")).
		SetAuthToken(serviceKey).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &StorageService{
		client:         client,
		baseURL:        strings.TrimRight(supabaseURL, "/"),
		cache:          c,
		maxUploadBytes: maxUploadBytes,
		typeAllowed:    typeAllowed,
	}
}

// ValidateUpload checks size and content type before anything hits the wire
func (s *StorageService) ValidateUpload(size int64, contentType string) error {
	if size <= 0 {
		return &PlatformError{Platform: "supabase", Operation: "upload", Message: "empty file"}
	}
	if size > s.maxUploadBytes {
		return &PlatformError{
			Platform:  "supabase",
			Operation: "upload",
			Message:   fmt.Sprintf("file exceeds %d bytes", s.maxUploadBytes),
		}
	}
	if !s.typeAllowed(contentType) {
		return &PlatformError{
			Platform:  "supabase",
			Operation: "upload",
			Message:   fmt.Sprintf("content type %s not allowed", contentType),
		}
	}
	return nil
}

// Upload stores data in the bucket and returns the object path. The
// filename is randomized; only the extension survives.
func (s *StorageService) Upload(ctx context.Context, bucket string, userID int64, filename, contentType string, data []byte) (string, error) {
	if err := s.ValidateUpload(int64(len(data)), contentType); err != nil {
		return "", err
	}

	objectPath := fmt.Sprintf("%d/%s%s", userID, uuid.NewString(), strings.ToLower(path.Ext(filename)))

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "true").
		SetBody(data).
		Post("/storage/v1/object/" + bucket + "/" + objectPath)
	if err != nil {
		return "", &PlatformError{Platform: "supabase", Operation: "upload", Message: "request failed", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return "", &PlatformError{
			Platform:  "supabase",
			Operation: "upload",
			Message:   fmt.Sprintf("API returned status %d", resp.StatusCode()),
		}
	}

	slog.Info("Image uploaded", "bucket", bucket, "path", objectPath, "bytes", len(data))
	return objectPath, nil
}

// Delete removes an object. Missing objects are not an error.
func (s *StorageService) Delete(ctx context.Context, bucket, objectPath string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		Delete("/storage/v1/object/" + bucket + "/" + objectPath)
	if err != nil {
		return &PlatformError{Platform: "supabase", Operation: "delete", Message: "request failed", Err: err}
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNotFound {
		return &PlatformError{
			Platform:  "supabase",
			Operation: "delete",
			Message:   fmt.Sprintf("API returned status %d", resp.StatusCode()),
		}
	}
	return nil
}

// SignedURL returns a time-limited public URL for an object. Results are
// cached so repeated feed renders don't re-sign the same images.
func (s *StorageService) SignedURL(ctx context.Context, bucket, objectPath string) (string, error) {
	key := cache.SignedURLKey(bucket, objectPath)

	var cached string
	if found, err := cache.GetJSON(ctx, s.cache, key, &cached); err == nil && found {
		return cached, nil
	}

	var result struct {
		SignedURL string `json:"signedURL"`
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]int{"expiresIn": signedURLSeconds}).
		SetResult(&result).
		Post("/storage/v1/object/sign/" + bucket + "/" + objectPath)
	if err != nil {
		return "", &PlatformError{Platform: "supabase", Operation: "sign", Message: "request failed", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return "", &PlatformError{
			Platform:  "supabase",
			Operation: "sign",
			Message:   fmt.Sprintf("API returned status %d", resp.StatusCode()),
		}
	}

	signed := s.baseURL + "/storage/v1" + result.SignedURL
	if err := cache.SetJSON(ctx, s.cache, key, signed, cache.SignedURLTTL); err != nil {
		slog.Warn("Failed to cache signed URL", "bucket", bucket, "path", objectPath, "error", err)
	}
	return signed, nil
}
