// Package media downloads post attachments into the vault's media
// directory and maps media keys to the relative paths Markdown embeds
// use. Individual download failures are logged and skipped; a post whose
// media is unavailable simply renders without the embed.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"ximport/internal/types"
)

// DirName is the media directory inside the output directory; it is also
// the path prefix of every returned relative path.
const DirName = "media"

const downloadTimeout = 30 * time.Second

var knownExtensions = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "mp4": {}, "webp": {},
}

// Downloader fetches media files referenced by posts.
type Downloader struct {
	client    *http.Client
	outputDir string
	log       *zap.Logger
}

// New creates a Downloader writing under outputDir.
func New(outputDir string, log *zap.Logger) *Downloader {
	return &Downloader{
		client:    &http.Client{Timeout: downloadTimeout},
		outputDir: outputDir,
		log:       log,
	}
}

// Download fetches every media record attached to the posts or their
// referenced posts and returns mediaKey → relative path for the files
// that exist locally afterwards. Existing files are reused.
func (d *Downloader) Download(ctx context.Context, posts []types.Post, inc types.Includes) (map[string]string, error) {
	records := make(map[string]types.Media, len(inc.Media))
	for _, m := range inc.Media {
		records[m.MediaKey] = m
	}
	if len(records) == 0 {
		return map[string]string{}, nil
	}

	needed := make(map[string]struct{})
	collect := func(p types.Post) {
		for _, key := range p.MediaKeys() {
			if _, ok := records[key]; ok {
				needed[key] = struct{}{}
			}
		}
		if p.Article != nil && p.Article.CoverMedia != "" {
			if _, ok := records[p.Article.CoverMedia]; ok {
				needed[p.Article.CoverMedia] = struct{}{}
			}
		}
	}
	for _, p := range posts {
		collect(p)
	}
	for _, p := range inc.Tweets {
		collect(p)
	}
	if len(needed) == 0 {
		return map[string]string{}, nil
	}

	mediaDir := filepath.Join(d.outputDir, DirName)
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}

	result := make(map[string]string, len(needed))
	for key := range needed {
		record := records[key]
		srcURL := downloadURL(record)
		if srcURL == "" {
			d.log.Debug("no download url", zap.String("media_key", key))
			continue
		}

		ext := extensionFromURL(srcURL)
		filename := key + "." + ext
		localPath := filepath.Join(mediaDir, filename)
		relPath := DirName + "/" + filename

		if _, err := os.Stat(localPath); err == nil {
			d.log.Debug("media already present", zap.String("path", relPath))
			result[key] = relPath
			continue
		}

		if err := d.fetch(ctx, srcURL, localPath); err != nil {
			d.log.Warn("media download failed", zap.String("url", srcURL), zap.Error(err))
			continue
		}
		d.log.Info("media downloaded", zap.String("path", relPath), zap.String("type", record.Type))
		result[key] = relPath
	}
	return result, nil
}

func (d *Downloader) fetch(ctx context.Context, srcURL, localPath string) error {
	resp, err := d.get(ctx, srcURL)
	if err != nil {
		return err
	}
	// pbs.twimg.com serves some legacy photo URLs only in the
	// ?format=<ext>&name=large form; retry 404s that way.
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		alt := altPhotoURL(srcURL)
		if alt == "" {
			return fmt.Errorf("status %d", http.StatusNotFound)
		}
		if resp, err = d.get(ctx, alt); err != nil {
			return err
		}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	file, err := os.Create(localPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(localPath)
		return err
	}
	return file.Close()
}

func (d *Downloader) get(ctx context.Context, srcURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, err
	}
	return d.client.Do(req)
}

// downloadURL picks the fetchable URL for a media record: the photo URL,
// or the highest-bitrate mp4 variant for videos and animated GIFs.
func downloadURL(m types.Media) string {
	switch m.Type {
	case "photo":
		return m.URL
	case "video", "animated_gif":
		return bestVideoURL(m.Variants)
	}
	return ""
}

// bestVideoURL returns the mp4 variant with the highest bitrate, or ""
// when there is none.
func bestVideoURL(variants []types.MediaVariant) string {
	best := ""
	bestRate := -1
	for _, v := range variants {
		if v.ContentType != "video/mp4" {
			continue
		}
		if v.BitRate > bestRate {
			best = v.URL
			bestRate = v.BitRate
		}
	}
	return best
}

// extensionFromURL guesses a file extension from the URL path, defaulting
// to jpg.
func extensionFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "jpg"
	}
	path := u.Path
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		ext := strings.ToLower(path[idx+1:])
		if _, ok := knownExtensions[ext]; ok {
			return ext
		}
	}
	return "jpg"
}

// altPhotoURL rewrites a legacy pbs.twimg.com photo URL into the
// format/name query form, or returns "" when not applicable.
func altPhotoURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() != "pbs.twimg.com" {
		return ""
	}
	dir, file := filepath.Split(u.Path)
	idx := strings.LastIndex(file, ".")
	if idx <= 0 {
		return ""
	}
	base, ext := file[:idx], file[idx+1:]
	return fmt.Sprintf("https://pbs.twimg.com%s%s?format=%s&name=large", dir, base, ext)
}
