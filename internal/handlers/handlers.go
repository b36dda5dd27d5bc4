package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"soundscore/internal/services"
)

// Pagination defaults shared by list endpoints
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pagination reads limit/offset query params with bounds applied
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// pathID parses a numeric path parameter, responding 400 on garbage
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// beforeCursor reads the optional before query param for cursor paging
func beforeCursor(c *gin.Context) int64 {
	before, _ := strconv.ParseInt(c.Query("before"), 10, 64)
	if before < 0 {
		return 0
	}
	return before
}

// receiveUpload reads the multipart "file" field, pushes it to storage and
// returns a signed URL. Responses are written on failure.
func receiveUpload(c *gin.Context, storage *services.StorageService, bucket string, userID int64) (string, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return "", false
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := storage.ValidateUpload(header.Size, contentType); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return "", false
	}

	path, err := storage.Upload(c.Request.Context(), bucket, userID, header.Filename, contentType, data)
	if err != nil {
		slog.Error("Upload failed", "bucket", bucket, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upload failed"})
		return "", false
	}

	url, err := storage.SignedURL(c.Request.Context(), bucket, path)
	if err != nil {
		slog.Error("Failed to sign upload", "bucket", bucket, "path", path, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upload failed"})
		return "", false
	}
	return url, true
}
