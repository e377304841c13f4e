package storage

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLayout(t *testing.T) *Layout {
	t.Helper()
	layout, err := NewLayout(t.TempDir())
	require.NoError(t, err)
	return layout
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLayoutRemoveMediaFiles(t *testing.T) {
	layout := newTestLayout(t)

	writeFile(t, layout.VideoPath("ABC-123"), "video")
	writeFile(t, layout.CoverPath(CoverFilename("ABC-123")), "cover")
	require.NoError(t, layout.SaveDocument("ABC-123", "missav", "<html></html>"))
	writeFile(t, layout.VideoPath("XYZ-001"), "other")

	removed, err := layout.RemoveMediaFiles("ABC-123", CoverFilename("ABC-123"))
	require.NoError(t, err)
	assert.Len(t, removed, 3)

	videos, err := layout.ListVideos()
	require.NoError(t, err)
	assert.Equal(t, []string{"XYZ-001"}, videos)

	// nothing left to remove
	removed, err = layout.RemoveMediaFiles("ABC-123", CoverFilename("ABC-123"))
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestFileSize(t *testing.T) {
	layout := newTestLayout(t)
	writeFile(t, layout.VideoPath("ABC-123"), "12345")

	size, ok := FileSize(layout.VideoPath("ABC-123"))
	assert.True(t, ok)
	assert.Equal(t, int64(5), size)

	_, ok = FileSize(layout.VideoPath("NOPE-1"))
	assert.False(t, ok)
}

func TestAssetFetcherDownload(t *testing.T) {
	var gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = io.WriteString(w, "jpegdata")
	}))
	defer server.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	fetcher := NewAssetFetcher(server.Client(), logger)
	layout := newTestLayout(t)
	dest := layout.CoverPath("ABC-123.jpg")

	require.NoError(t, fetcher.Download(context.Background(), server.URL+"/cover.jpg", "https://example.com/", dest))
	assert.Equal(t, "https://example.com/", gotReferer)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "jpegdata", string(data))

	err = fetcher.Download(context.Background(), server.URL+"/missing.jpg", "", layout.CoverPath("X-1.jpg"))
	assert.Error(t, err)
	_, ok := FileSize(layout.CoverPath("X-1.jpg"))
	assert.False(t, ok)
}

func TestAvatarFilenameStable(t *testing.T) {
	a := AvatarFilename("https://img.example.com/actress/abc.png")
	assert.Equal(t, a, AvatarFilename("https://img.example.com/actress/abc.png"))
	assert.Equal(t, ".png", filepath.Ext(a))
	assert.Equal(t, ".jpg", filepath.Ext(AvatarFilename("https://img.example.com/actress/abc")))
}

func TestGenerateThumbnail(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cover.png")

	img := image.NewRGBA(image.Rect(0, 0, 800, 600))
	for x := 0; x < 800; x++ {
		img.Set(x, 300, color.RGBA{R: 255, A: 255})
	}
	f, err := os.Create(src)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	dst := filepath.Join(dir, "thumb.jpg")
	require.NoError(t, GenerateThumbnail(src, dst, ThumbnailWidth))

	out, err := os.Open(dst)
	require.NoError(t, err)
	defer out.Close()
	cfg, format, err := image.DecodeConfig(out)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 240, cfg.Height)
}
