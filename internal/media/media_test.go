package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ximport/internal/types"
)

func TestBestVideoURL(t *testing.T) {
	variants := []types.MediaVariant{
		{ContentType: "application/x-mpegURL", URL: "https://vid/playlist.m3u8"},
		{ContentType: "video/mp4", BitRate: 632000, URL: "https://vid/low.mp4"},
		{ContentType: "video/mp4", BitRate: 2176000, URL: "https://vid/high.mp4"},
	}
	assert.Equal(t, "https://vid/high.mp4", bestVideoURL(variants))
	assert.Empty(t, bestVideoURL(nil))
	assert.Empty(t, bestVideoURL([]types.MediaVariant{{ContentType: "application/x-mpegURL"}}))
}

func TestExtensionFromURL(t *testing.T) {
	cases := []struct {
		url string
		ext string
	}{
		{"https://pbs.twimg.com/media/abc.png", "png"},
		{"https://video.twimg.com/vid/720x1280/xyz.mp4?tag=12", "mp4"},
		{"https://pbs.twimg.com/media/abc.PNG", "png"},
		{"https://pbs.twimg.com/media/abc.tiff", "jpg"},
		{"https://pbs.twimg.com/media/noext", "jpg"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ext, extensionFromURL(tc.url), tc.url)
	}
}

func TestAltPhotoURL(t *testing.T) {
	assert.Equal(t,
		"https://pbs.twimg.com/media/abc?format=jpg&name=large",
		altPhotoURL("https://pbs.twimg.com/media/abc.jpg"))
	assert.Empty(t, altPhotoURL("https://example.com/media/abc.jpg"))
	assert.Empty(t, altPhotoURL("https://pbs.twimg.com/media/noext"))
}

func TestDownloadURL(t *testing.T) {
	photo := types.Media{Type: "photo", URL: "https://pbs.twimg.com/media/p.jpg"}
	assert.Equal(t, photo.URL, downloadURL(photo))

	video := types.Media{Type: "video", Variants: []types.MediaVariant{
		{ContentType: "video/mp4", BitRate: 100, URL: "https://vid/v.mp4"},
	}}
	assert.Equal(t, "https://vid/v.mp4", downloadURL(video))

	assert.Empty(t, downloadURL(types.Media{Type: "photo"}))
	assert.Empty(t, downloadURL(types.Media{Type: "unknown", URL: "https://x/y.jpg"}))
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	d := New(dir, zap.NewNop())

	posts := []types.Post{{
		ID:          "1",
		Text:        "with media",
		Attachments: &types.Attachments{MediaKeys: []string{"mk1"}},
	}}
	inc := types.Includes{Media: []types.Media{
		{MediaKey: "mk1", Type: "photo", URL: server.URL + "/media/pic.png"},
		{MediaKey: "mk_unreferenced", Type: "photo", URL: server.URL + "/media/other.png"},
	}}

	paths, err := d.Download(context.Background(), posts, inc)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"mk1": "media/mk1.png"}, paths)

	data, err := os.ReadFile(filepath.Join(dir, "media", "mk1.png"))
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(data))

	// Only the referenced key is fetched.
	_, err = os.Stat(filepath.Join(dir, "media", "mk_unreferenced.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadReusesExistingFile(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte("fresh"))
	}))
	defer server.Close()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "media"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "media", "mk1.jpg"), []byte("cached"), 0o644))

	posts := []types.Post{{
		ID:          "1",
		Text:        "with media",
		Attachments: &types.Attachments{MediaKeys: []string{"mk1"}},
	}}
	inc := types.Includes{Media: []types.Media{
		{MediaKey: "mk1", Type: "photo", URL: server.URL + "/media/pic.jpg"},
	}}

	paths, err := New(dir, zap.NewNop()).Download(context.Background(), posts, inc)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"mk1": "media/mk1.jpg"}, paths)
	assert.Zero(t, requests)

	data, err := os.ReadFile(filepath.Join(dir, "media", "mk1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "cached", string(data))
}

func TestDownloadArticleCover(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("cover"))
	}))
	defer server.Close()

	dir := t.TempDir()
	posts := []types.Post{{
		ID:      "1",
		Text:    "article post",
		Article: &types.Article{Title: "Piece", CoverMedia: "mk_cover"},
	}}
	inc := types.Includes{Media: []types.Media{
		{MediaKey: "mk_cover", Type: "photo", URL: server.URL + "/media/cover.jpg"},
	}}

	paths, err := New(dir, zap.NewNop()).Download(context.Background(), posts, inc)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"mk_cover": "media/mk_cover.jpg"}, paths)
}

func TestDownloadSkipsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dir := t.TempDir()
	posts := []types.Post{{
		ID:          "1",
		Text:        "with media",
		Attachments: &types.Attachments{MediaKeys: []string{"mk1", "mk2"}},
	}}
	inc := types.Includes{Media: []types.Media{
		{MediaKey: "mk1", Type: "photo", URL: server.URL + "/media/broken.jpg"},
		{MediaKey: "mk2", Type: "video"}, // no mp4 variant
	}}

	paths, err := New(dir, zap.NewNop()).Download(context.Background(), posts, inc)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestDownloadNoMedia(t *testing.T) {
	paths, err := New(t.TempDir(), zap.NewNop()).Download(context.Background(),
		[]types.Post{{ID: "1", Text: "plain"}}, types.Includes{})
	require.NoError(t, err)
	assert.Empty(t, paths)
}
