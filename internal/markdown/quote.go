package markdown

import (
	"fmt"
	"strings"

	"ximport/internal/types"
)

// maxQuoteDepth caps nested quote rendering. References beyond this depth
// are silently truncated.
const maxQuoteDepth = 5

var linkTextSanitizer = strings.NewReplacer("[", "", "]", "")

// sanitizeLinkText strips the characters that would let a resolved title
// break out of a Markdown link span.
func sanitizeLinkText(s string) string {
	return linkTextSanitizer.Replace(s)
}

// expandURLs replaces each shortened URL occurrence in text with its
// expanded form, as a Markdown link when a resolved title is available.
func expandURLs(text string, ents *types.Entities) string {
	if ents == nil {
		return text
	}
	for _, u := range ents.URLs {
		expanded := u.ExpandedURL
		if expanded == "" {
			expanded = u.URL
		}
		replacement := expanded
		if u.Title != "" {
			replacement = fmt.Sprintf("[%s](%s)", sanitizeLinkText(u.Title), expanded)
		}
		text = strings.ReplaceAll(text, u.URL, replacement)
	}
	return text
}

// quoteBlock renders a referenced post as a top-level block quote.
func quoteBlock(ref *RefPost, graph RefGraph, mediaMap map[string]string) []string {
	return renderQuoted(ref, graph, 1, mediaMap, map[string]struct{}{ref.ID: {}})
}

// renderQuoted renders a referenced post at the given quote depth and
// recurses into its own references while depth allows. onPath tracks the
// ids on the current recursion path so a self-referential cycle cannot
// recurse forever; sibling branches may still repeat a reference.
func renderQuoted(ref *RefPost, graph RefGraph, depth int, mediaMap map[string]string, onPath map[string]struct{}) []string {
	prefix := strings.Repeat("> ", depth)
	emptyPrefix := strings.TrimRight(prefix, " ")

	var lines []string
	if ref.AuthorHandle != "" {
		lines = append(lines, prefix+"@"+ref.AuthorHandle+":")
		lines = append(lines, emptyPrefix)
	}

	// Articles render title, cover and body; no recursion into references.
	if ref.Article != nil {
		if ref.Article.Title != "" {
			lines = append(lines, prefix+"**"+sanitizeLinkText(ref.Article.Title)+"**")
			lines = append(lines, emptyPrefix)
		}
		if path, ok := mediaMap[ref.Article.CoverMedia]; ok && ref.Article.CoverMedia != "" {
			lines = append(lines, prefix+"![]("+path+")")
			lines = append(lines, emptyPrefix)
		}
		if ref.Article.PlainText != "" {
			lines = append(lines, prefix+indentBody(ref.Article.PlainText, prefix))
		}
		return lines
	}

	// Long-form posts carry their full text and their own entity set.
	var text string
	if note := ref.NoteTweet; note != nil {
		ents := note.Entities
		if ents == nil {
			ents = ref.Entities
		}
		body := note.Text
		if body == "" {
			body = ref.Text
		}
		text = expandURLs(body, ents)
	} else {
		text = expandURLs(ref.Text, ref.Entities)
	}
	lines = append(lines, prefix+indentBody(text, prefix))

	for _, key := range ref.MediaKeys() {
		if path, ok := mediaMap[key]; ok {
			lines = append(lines, emptyPrefix)
			lines = append(lines, prefix+"![]("+path+")")
		}
	}

	if depth < maxQuoteDepth {
		for _, r := range ref.ReferencedTweets {
			if r.Type != types.RefQuoted && r.Type != types.RefRetweeted && r.Type != types.RefRepliedTo {
				continue
			}
			next, ok := graph[r.ID]
			if !ok {
				continue
			}
			if _, looping := onPath[r.ID]; looping {
				continue
			}
			onPath[r.ID] = struct{}{}
			lines = append(lines, emptyPrefix)
			lines = append(lines, renderQuoted(next, graph, depth+1, mediaMap, onPath)...)
			delete(onPath, r.ID)
		}
	}

	return lines
}

// indentBody carries the quote prefix across the body's own line breaks.
func indentBody(body, prefix string) string {
	return strings.ReplaceAll(body, "\n", "\n"+prefix)
}
