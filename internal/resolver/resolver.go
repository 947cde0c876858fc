// Package resolver fills in page titles for the links posts point at, so
// the rendered Markdown can show [title](url) instead of a bare URL.
// Fetches are guarded against SSRF: hosts resolving to private, loopback
// or link-local addresses are refused.
package resolver

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"ximport/internal/types"
)

const (
	fetchTimeout = 5 * time.Second
	maxRedirects = 5
	userAgent    = "ximport"
)

// Link hosts on the platform itself are handled by quote rendering, not
// title resolution.
var skipHosts = map[string]struct{}{
	"x.com":       {},
	"twitter.com": {},
}

// Resolver fetches page titles for URL entities that lack one.
type Resolver struct {
	client   *http.Client
	log      *zap.Logger
	lookupIP func(host string) ([]net.IP, error)
}

// New creates a Resolver.
func New(log *zap.Logger) *Resolver {
	return &Resolver{
		client: &http.Client{
			Timeout: fetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		log:      log,
		lookupIP: net.LookupIP,
	}
}

// ResolveTitles sets the title of every URL entity in the posts that does
// not already carry one. Failures are logged and skipped; posts keep the
// bare expanded URL.
func (r *Resolver) ResolveTitles(posts []types.Post) {
	for i := range posts {
		r.resolveEntities(posts[i].Entities)
	}
}

func (r *Resolver) resolveEntities(ents *types.Entities) {
	if ents == nil {
		return
	}
	for i := range ents.URLs {
		entity := &ents.URLs[i]
		if entity.Title != "" {
			continue
		}
		target := entity.ExpandedURL
		if target == "" {
			target = entity.URL
		}
		if title := r.fetchTitle(target); title != "" {
			entity.Title = title
		}
	}
}

// fetchTitle returns the page title of the URL, or "" when the URL is
// skipped or the title cannot be determined.
func (r *Resolver) fetchTitle(rawURL string) string {
	host := hostOf(rawURL)
	if host == "" {
		return ""
	}
	if _, skip := skipHosts[strings.TrimPrefix(host, "www.")]; skip {
		return ""
	}
	if r.isPrivateHost(host) {
		r.log.Debug("skipping private host", zap.String("url", rawURL))
		return ""
	}

	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Debug("title fetch failed", zap.String("url", rawURL), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		r.log.Debug("title fetch failed", zap.String("url", rawURL), zap.Int("status", resp.StatusCode))
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		r.log.Debug("title parse failed", zap.String("url", rawURL), zap.Error(err))
		return ""
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		r.log.Debug("no title", zap.String("url", rawURL))
		return ""
	}
	r.log.Debug("title resolved", zap.String("url", rawURL), zap.String("title", title))
	return title
}

// isPrivateHost reports whether the host resolves to a private, loopback
// or link-local address. Resolution failure counts as private.
func (r *Resolver) isPrivateHost(host string) bool {
	ips, err := r.lookupIP(host)
	if err != nil || len(ips) == 0 {
		return true
	}
	for _, ip := range ips {
		if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
