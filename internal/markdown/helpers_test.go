package markdown

import (
	"time"

	"ximport/internal/types"
)

// postOpt mutates a test post under construction.
type postOpt func(*types.Post)

func makePost(id string, opts ...postOpt) types.Post {
	p := types.Post{
		ID:        id,
		Text:      "test post " + id,
		CreatedAt: time.Date(2026, 2, 20, 0, 30, 0, 0, time.UTC),
		PublicMetrics: &types.PublicMetrics{
			LikeCount:       5,
			RetweetCount:    2,
			ReplyCount:      1,
			ImpressionCount: 100,
		},
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func withText(text string) postOpt {
	return func(p *types.Post) { p.Text = text }
}

func withCreatedAt(t time.Time) postOpt {
	return func(p *types.Post) { p.CreatedAt = t }
}

func withMetrics(like, rt, reply, imp int) postOpt {
	return func(p *types.Post) {
		p.PublicMetrics = &types.PublicMetrics{
			LikeCount:       like,
			RetweetCount:    rt,
			ReplyCount:      reply,
			ImpressionCount: imp,
		}
	}
}

func withRef(refType, id string) postOpt {
	return func(p *types.Post) {
		p.ReferencedTweets = append(p.ReferencedTweets, types.ReferencedTweet{Type: refType, ID: id})
	}
}

func withEntities(urls ...types.URLEntity) postOpt {
	return func(p *types.Post) { p.Entities = &types.Entities{URLs: urls} }
}

func withMediaKeys(keys ...string) postOpt {
	return func(p *types.Post) { p.Attachments = &types.Attachments{MediaKeys: keys} }
}

func withArticle(a types.Article) postOpt {
	return func(p *types.Post) { p.Article = &a }
}

func withNote(n types.NoteTweet) postOpt {
	return func(p *types.Post) { p.NoteTweet = &n }
}

func refPost(id, text, handle string, opts ...postOpt) *RefPost {
	p := makePost(id, withText(text))
	p.PublicMetrics = nil
	for _, opt := range opts {
		opt(&p)
	}
	return &RefPost{Post: p, AuthorHandle: handle}
}

func utc(day, hour int) time.Time {
	return time.Date(2026, 2, day, hour, 0, 0, 0, time.UTC)
}
