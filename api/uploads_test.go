package api_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanbanmusic/internal/testsupport"
)

func doUpload(t *testing.T, router *gin.Engine, path, field, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestUploadAudio(t *testing.T) {
	router, _ := testsupport.NewServer(t)

	rec := doUpload(t, router, "/api/upload/audio", "audio", "My Song.mp3", "audio/mpeg", []byte("fake mp3 bytes"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		URL string `json:"url"`
	}
	testsupport.Decode(t, rec, &resp)
	assert.True(t, strings.HasPrefix(resp.URL, "/uploads/audio/"), resp.URL)
	assert.True(t, strings.HasSuffix(resp.URL, ".mp3"), resp.URL)
	// no captioning client, so no notes in the response
	assert.NotContains(t, rec.Body.String(), "music_ai_notes")
}

func TestUploadAudioRejectsType(t *testing.T) {
	router, _ := testsupport.NewServer(t)

	rec := doUpload(t, router, "/api/upload/audio", "audio", "notes.txt", "text/plain", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid file type")
}

func TestUploadAudioMissingFile(t *testing.T) {
	router, _ := testsupport.NewServer(t)

	rec := doUpload(t, router, "/api/upload/audio", "wrongfield", "song.mp3", "audio/mpeg", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No audio file provided")
}

func TestUploadCover(t *testing.T) {
	router, _ := testsupport.NewServer(t)

	rec := doUpload(t, router, "/api/upload/cover", "cover", "art.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		URL string `json:"url"`
	}
	testsupport.Decode(t, rec, &resp)
	assert.True(t, strings.HasPrefix(resp.URL, "/uploads/covers/"), resp.URL)
	assert.True(t, strings.HasSuffix(resp.URL, ".png"), resp.URL)
}

func TestUploadCoverRejectsType(t *testing.T) {
	router, _ := testsupport.NewServer(t)

	rec := doUpload(t, router, "/api/upload/cover", "cover", "clip.mp4", "video/mp4", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid file type")
}

func TestMusicCaptionUnconfigured(t *testing.T) {
	router, _ := testsupport.NewServer(t)

	rec := doUpload(t, router, "/api/ai/music-caption", "audio", "song.wav", "audio/wav", []byte("riff"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMusicAnalysisUnconfigured(t *testing.T) {
	router, _ := testsupport.NewServer(t)

	rec := doUpload(t, router, "/api/ai/clap-music", "audio", "song.wav", "audio/wav", []byte("riff"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
