package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	maxAudioUploadSize = 100 << 20 // 100MB
	maxCoverUploadSize = 10 << 20  // 10MB
)

var allowedAudioTypes = map[string]struct{}{
	"audio/mp3":  {},
	"audio/mpeg": {},
	"audio/wav":  {},
	"audio/ogg":  {},
	"audio/m4a":  {},
	"audio/aac":  {},
}

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// UploadAudioHandler stores an uploaded audio file and, when the captioning
// client is configured, attaches an AI-generated description of the music.
// Captioning failures are logged and ignored; the upload itself still
// succeeds.
func (h *Handler) UploadAudioHandler(c *gin.Context) {
	file, err := validatedFormFile(c, "audio", allowedAudioTypes, maxAudioUploadSize, "No audio file provided")
	if err != nil {
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer src.Close()

	url, err := h.Blobs.Save(c.Request.Context(), "audio", file.Filename, src)
	if err != nil {
		zap.L().Error("Error storing audio upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store audio file"})
		return
	}

	resp := gin.H{"url": url}
	if h.Captions.Enabled() {
		if notes := h.captionUpload(c, file); notes != "" {
			resp["music_ai_notes"] = notes
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) UploadCoverHandler(c *gin.Context) {
	file, err := validatedFormFile(c, "cover", allowedImageTypes, maxCoverUploadSize, "No cover file provided")
	if err != nil {
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer src.Close()

	url, err := h.Blobs.Save(c.Request.Context(), "covers", file.Filename, src)
	if err != nil {
		zap.L().Error("Error storing cover upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store cover file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// validatedFormFile fetches the named multipart file and enforces the type
// whitelist and size cap, writing the 400 response itself on failure.
func validatedFormFile(c *gin.Context, field string, allowed map[string]struct{}, maxSize int64, missingMsg string) (*multipart.FileHeader, error) {
	file, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": missingMsg})
		return nil, err
	}

	contentType := file.Header.Get("Content-Type")
	if _, ok := allowed[contentType]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid file type: %s", contentType)})
		return nil, fmt.Errorf("invalid file type %q", contentType)
	}
	if file.Size > maxSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File size too large"})
		return nil, fmt.Errorf("file too large: %d bytes", file.Size)
	}

	return file, nil
}

func (h *Handler) captionUpload(c *gin.Context, file *multipart.FileHeader) string {
	src, err := file.Open()
	if err != nil {
		zap.L().Warn("Could not reopen audio upload for captioning", zap.Error(err))
		return ""
	}
	defer src.Close()

	audio, err := io.ReadAll(src)
	if err != nil {
		zap.L().Warn("Could not read audio upload for captioning", zap.Error(err))
		return ""
	}

	result, err := h.Captions.Caption(c.Request.Context(), audio)
	if err != nil {
		zap.L().Warn("Music captioning failed", zap.Error(err))
		return ""
	}
	return result.Caption
}
