package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskSave(t *testing.T) {
	dir := t.TempDir()
	store := NewDisk(dir, "/uploads/")

	url, err := store.Save(context.Background(), "audio", "My Track.mp3", strings.NewReader("audio-bytes"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "/uploads/audio/"), "url %q", url)
	assert.True(t, strings.HasSuffix(url, ".mp3"), "url %q", url)
	// spaces are not carried into the stored name
	assert.NotContains(t, url, " ")

	name := strings.TrimPrefix(url, "/uploads/audio/")
	data, err := os.ReadFile(filepath.Join(dir, "audio", name))
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))
}

func TestDiskSaveCollisionFree(t *testing.T) {
	store := NewDisk(t.TempDir(), "/uploads")

	first, err := store.Save(context.Background(), "covers", "cover.png", strings.NewReader("a"))
	require.NoError(t, err)
	second, err := store.Save(context.Background(), "covers", "cover.png", strings.NewReader("b"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDiskSaveWeirdFilename(t *testing.T) {
	store := NewDisk(t.TempDir(), "/uploads")

	url, err := store.Save(context.Background(), "covers", "../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/covers/"), "url %q", url)
	assert.NotContains(t, url, "..")
}

func TestDiskSaveCancelledContext(t *testing.T) {
	store := NewDisk(t.TempDir(), "/uploads")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Save(ctx, "audio", "a.mp3", strings.NewReader("x"))
	assert.Error(t, err)
}
