package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MusicCaptionHandler proxies an uploaded audio file to the captioning
// service and returns the generated description.
func (h *Handler) MusicCaptionHandler(c *gin.Context) {
	if !h.Captions.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Music captioning is not configured"})
		return
	}

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

	audio, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}

	result, err := h.Captions.Caption(c.Request.Context(), audio)
	if err != nil {
		zap.L().Error("Music captioning failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to generate music caption"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// clips sent for analysis are capped well below the upload limit
const maxAnalysisSize = 10 << 20 // 10MB

// MusicAnalysisHandler runs zero-shot genre/mood/instrument classification of
// an uploaded audio file and returns formatted notes plus the structured
// analysis.
func (h *Handler) MusicAnalysisHandler(c *gin.Context) {
	if !h.Analyzer.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Music analysis is not configured"})
		return
	}

	file, err := validatedFormFile(c, "audio", allowedAudioTypes, maxAnalysisSize, "No audio file provided")
	if err != nil {
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer src.Close()

	audio, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}

	result, err := h.Analyzer.Analyze(c.Request.Context(), audio)
	if err != nil {
		zap.L().Error("Music analysis failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to analyse music"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"musicNotes": result.MusicNotes,
		"analysis":   result.Analysis,
		"model":      result.Model,
		"provider":   result.Provider,
	})
}
