package types

import "time"

// Referenced tweet relationship types as reported by the X API v2.
const (
	RefQuoted    = "quoted"
	RefRetweeted = "retweeted"
	RefRepliedTo = "replied_to"
)

// PublicMetrics holds the engagement counts attached to a post.
type PublicMetrics struct {
	LikeCount       int `json:"like_count"`
	RetweetCount    int `json:"retweet_count"`
	ReplyCount      int `json:"reply_count"`
	ImpressionCount int `json:"impression_count"`
}

// ReferencedTweet links a post to another post it quotes, retweets or
// replies to.
type ReferencedTweet struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// URLEntity describes one shortened URL occurrence in a post's text. Title
// is filled in by the link-title resolver when it can be determined.
type URLEntity struct {
	URL         string `json:"url"`
	ExpandedURL string `json:"expanded_url,omitempty"`
	Title       string `json:"title,omitempty"`
}

// Entities holds the entity annotations of a post's text.
type Entities struct {
	URLs []URLEntity `json:"urls,omitempty"`
}

// Attachments lists the media keys attached to a post.
type Attachments struct {
	MediaKeys []string `json:"media_keys,omitempty"`
}

// Article is the payload of a long-form X article post.
type Article struct {
	Title      string `json:"title,omitempty"`
	PlainText  string `json:"plain_text,omitempty"`
	CoverMedia string `json:"cover_media,omitempty"`
}

// NoteTweet carries the full text of a post that exceeds the classic
// length limit. Its entity set, when present, supersedes the post's own.
type NoteTweet struct {
	Text     string    `json:"text,omitempty"`
	Entities *Entities `json:"entities,omitempty"`
}

// Post is one published post. Instances are immutable once cached; the
// renderer works on its own enriched view and never writes back.
type Post struct {
	ID               string            `json:"id"`
	Text             string            `json:"text"`
	CreatedAt        time.Time         `json:"created_at"`
	AuthorID         string            `json:"author_id,omitempty"`
	PublicMetrics    *PublicMetrics    `json:"public_metrics,omitempty"`
	ReferencedTweets []ReferencedTweet `json:"referenced_tweets,omitempty"`
	Entities         *Entities         `json:"entities,omitempty"`
	Attachments      *Attachments      `json:"attachments,omitempty"`
	Article          *Article          `json:"article,omitempty"`
	NoteTweet        *NoteTweet        `json:"note_tweet,omitempty"`
}

// IsPlainRetweet reports whether the post is a plain retweet (it carries a
// retweeted reference).
func (p *Post) IsPlainRetweet() bool {
	for _, ref := range p.ReferencedTweets {
		if ref.Type == RefRetweeted {
			return true
		}
	}
	return false
}

// Metrics returns the post's engagement counts, zero-valued when absent.
func (p *Post) Metrics() PublicMetrics {
	if p.PublicMetrics == nil {
		return PublicMetrics{}
	}
	return *p.PublicMetrics
}

// MediaKeys returns the attachment media keys, nil when the post has none.
func (p *Post) MediaKeys() []string {
	if p.Attachments == nil {
		return nil
	}
	return p.Attachments.MediaKeys
}

// User is a referenced author record from the includes side-table.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
}

// MediaVariant is one downloadable rendition of a video or animated GIF.
type MediaVariant struct {
	ContentType string `json:"content_type,omitempty"`
	BitRate     int    `json:"bit_rate,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Media is a referenced media record from the includes side-table.
// Identity is MediaKey.
type Media struct {
	MediaKey        string         `json:"media_key"`
	Type            string         `json:"type,omitempty"`
	URL             string         `json:"url,omitempty"`
	PreviewImageURL string         `json:"preview_image_url,omitempty"`
	Variants        []MediaVariant `json:"variants,omitempty"`
}

// Includes is the side-table of entities referenced by, but not part of,
// the primary post set. Each category decodes into its own typed slice, so
// the rest of the pipeline never inspects record kinds at runtime.
type Includes struct {
	Tweets []Post  `json:"tweets,omitempty"`
	Users  []User  `json:"users,omitempty"`
	Media  []Media `json:"media,omitempty"`
}

// Empty reports whether no category holds any record.
func (in Includes) Empty() bool {
	return len(in.Tweets) == 0 && len(in.Users) == 0 && len(in.Media) == 0
}

// MergeIncludes combines two includes bundles without duplication: per
// category, existing records come first and incoming records whose identity
// (id, or media_key for media) is already present are skipped.
func MergeIncludes(existing, incoming Includes) Includes {
	return Includes{
		Tweets: mergeByKey(existing.Tweets, incoming.Tweets, func(p Post) string { return p.ID }),
		Users:  mergeByKey(existing.Users, incoming.Users, func(u User) string { return u.ID }),
		Media:  mergeByKey(existing.Media, incoming.Media, func(m Media) string { return m.MediaKey }),
	}
}

func mergeByKey[T any](existing, incoming []T, key func(T) string) []T {
	if len(incoming) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]T, 0, len(existing)+len(incoming))
	for _, item := range existing {
		seen[key(item)] = struct{}{}
		out = append(out, item)
	}
	for _, item := range incoming {
		if _, ok := seen[key(item)]; ok {
			continue
		}
		seen[key(item)] = struct{}{}
		out = append(out, item)
	}
	return out
}

// FetchResult is the unit of data handed from the fetch layer (or the
// cache) to the rendering pipeline.
type FetchResult struct {
	Tweets   []Post   `json:"tweets"`
	Includes Includes `json:"includes"`

	// Bookkeeping, never persisted.
	RequestCount int  `json:"-"`
	FromCache    bool `json:"-"`
}

// Period is a half-open time interval [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}
