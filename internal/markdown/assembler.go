// Package markdown turns a loaded fetch result into per-day Markdown
// documents: quotes and replies resolved through the reference graph,
// self-reply chains folded into single thread entries, engagement
// analytics aggregated per day.
package markdown

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
	"go.uber.org/zap"

	"ximport/internal/dates"
	"ximport/internal/types"
)

// Options configures an Assembler. Formats use strftime patterns, matching
// the values users configure.
type Options struct {
	OutputDir      string
	Username       string
	Location       *time.Location
	HeadingFormat  string // e.g. "%Y-%m-%d %H:%M"
	FilenameFormat string // e.g. "x-post-%Y-%m-%d"
	CostPerRead    float64
}

// Assembler writes one Markdown document per local calendar day.
type Assembler struct {
	opts Options
	log  *zap.Logger
}

// New creates an Assembler.
func New(opts Options, log *zap.Logger) *Assembler {
	return &Assembler{opts: opts, log: log}
}

// WriteFiles groups the result's posts by local day and writes one
// document per day into the output directory, creating it if absent and
// overwriting existing files. Returns the written paths in day order.
func (a *Assembler) WriteFiles(res *types.FetchResult, mediaMap map[string]string) ([]string, error) {
	if err := os.MkdirAll(a.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	graph := BuildRefGraph(res.Includes)
	groups := dates.GroupByDay(res.Tweets, a.opts.Location)

	days := make([]string, 0, len(groups))
	for day := range groups {
		days = append(days, day)
	}
	sort.Strings(days)

	var written []string
	for _, day := range days {
		posts := groups[day]
		sort.SliceStable(posts, func(i, j int) bool {
			return posts[i].CreatedAt.Before(posts[j].CreatedAt)
		})

		name, err := a.filenameFor(day)
		if err != nil {
			return written, err
		}
		path := filepath.Join(a.opts.OutputDir, name)
		content := a.formatDay(day, posts, graph, mediaMap)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		a.log.Debug("document written", zap.String("day", day), zap.Int("posts", len(posts)))
		written = append(written, path)
	}
	return written, nil
}

func (a *Assembler) filenameFor(day string) (string, error) {
	t, err := time.ParseInLocation(dates.KeyFormat, day, a.opts.Location)
	if err != nil {
		return "", fmt.Errorf("bad day key %q: %w", day, err)
	}
	return strftime.Format(a.opts.FilenameFormat, t) + ".md", nil
}

// formatDay renders one day's document: front matter, the analytics
// block, then one section per unsuppressed post or thread.
func (a *Assembler) formatDay(day string, posts []types.Post, graph RefGraph, mediaMap map[string]string) string {
	heads, suppressed := detectThreads(posts)

	lines := []string{
		"---",
		"date: " + day,
		"type: x-posts",
		"---",
		"",
		formatAnalytics(posts, a.opts.CostPerRead),
		"",
	}

	for _, p := range posts {
		if _, skip := suppressed[p.ID]; skip {
			continue
		}
		lines = append(lines, "---", "")
		if chain, ok := heads[p.ID]; ok {
			lines = append(lines, a.formatThread(chain, graph, mediaMap))
		} else {
			lines = append(lines, a.formatPost(p, graph, mediaMap))
		}
		lines = append(lines, "")
	}

	return joinLines(lines)
}

// formatPost renders a standalone post section. Plain retweets show only
// the quoted original; everything else shows the body plus its own
// metrics table.
func (a *Assembler) formatPost(p types.Post, graph RefGraph, mediaMap map[string]string) string {
	lines := []string{a.heading(p), ""}

	if p.IsPlainRetweet() {
		for _, ref := range p.ReferencedTweets {
			if ref.Type != types.RefRetweeted {
				continue
			}
			if original, ok := graph[ref.ID]; ok {
				lines = append(lines, quoteBlock(original, graph, mediaMap)...)
				lines = append(lines, "")
			}
		}
	} else {
		lines = append(lines, formatPostBody(p, graph, mediaMap, nil)...)
		lines = append(lines, formatMetricsTable([]types.Post{p})...)
	}

	return joinLines(lines)
}

// formatThread renders a self-reply chain as one combined entry headed by
// the chain's first post. Replies within the chain are not block-quoted
// against each other; the per-entry metrics aggregate all members.
func (a *Assembler) formatThread(chain []types.Post, graph RefGraph, mediaMap map[string]string) string {
	chainIDs := make(map[string]struct{}, len(chain))
	for _, p := range chain {
		chainIDs[p.ID] = struct{}{}
	}

	lines := []string{a.heading(chain[0]), ""}
	for _, p := range chain {
		lines = append(lines, formatPostBody(p, graph, mediaMap, chainIDs)...)
	}
	lines = append(lines, formatMetricsTable(chain)...)

	return joinLines(lines)
}

// heading renders the section heading linking to the post on x.com.
func (a *Assembler) heading(p types.Post) string {
	label := strftime.Format(a.opts.HeadingFormat, p.CreatedAt.In(a.opts.Location))
	url := fmt.Sprintf("https://x.com/%s/status/%s", a.opts.Username, p.ID)
	return fmt.Sprintf("## [%s](%s)", label, url)
}

// formatPostBody renders a post's reply context, body, media and quoted
// posts, without heading or metrics. Reply targets listed in skipReplied
// (the members of the post's own thread) are not quoted.
func formatPostBody(p types.Post, graph RefGraph, mediaMap map[string]string, skipReplied map[string]struct{}) []string {
	var lines []string

	for _, ref := range p.ReferencedTweets {
		if ref.Type != types.RefRepliedTo {
			continue
		}
		if _, inChain := skipReplied[ref.ID]; inChain {
			continue
		}
		if parent, ok := graph[ref.ID]; ok {
			lines = append(lines, quoteBlock(parent, graph, mediaMap)...)
			lines = append(lines, "")
		}
	}

	if p.Article != nil {
		if p.Article.Title != "" {
			lines = append(lines, "**"+sanitizeLinkText(p.Article.Title)+"**", "")
		}
		if path, ok := mediaMap[p.Article.CoverMedia]; ok && p.Article.CoverMedia != "" {
			lines = append(lines, "![]("+path+")", "")
		}
		if p.Article.PlainText != "" {
			lines = append(lines, p.Article.PlainText, "")
		}
		return lines
	}

	var text string
	if note := p.NoteTweet; note != nil {
		ents := note.Entities
		if ents == nil {
			ents = p.Entities
		}
		body := note.Text
		if body == "" {
			body = p.Text
		}
		text = expandURLs(body, ents)
	} else {
		text = expandURLs(p.Text, p.Entities)
	}
	lines = append(lines, text, "")

	lines = append(lines, formatMedia(p, mediaMap)...)

	for _, ref := range p.ReferencedTweets {
		if ref.Type != types.RefQuoted {
			continue
		}
		if quoted, ok := graph[ref.ID]; ok {
			lines = append(lines, quoteBlock(quoted, graph, mediaMap)...)
			lines = append(lines, "")
		}
	}

	return lines
}

// formatMedia renders embed lines for the post's mapped attachments.
// Unmapped keys are skipped without a placeholder.
func formatMedia(p types.Post, mediaMap map[string]string) []string {
	var lines []string
	for _, key := range p.MediaKeys() {
		if path, ok := mediaMap[key]; ok {
			lines = append(lines, "![]("+path+")", "")
		}
	}
	return lines
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
