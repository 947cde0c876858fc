package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPlainRetweet(t *testing.T) {
	rt := Post{ID: "1", ReferencedTweets: []ReferencedTweet{{Type: RefRetweeted, ID: "999"}}}
	quote := Post{ID: "2", ReferencedTweets: []ReferencedTweet{{Type: RefQuoted, ID: "888"}}}
	plain := Post{ID: "3"}

	assert.True(t, rt.IsPlainRetweet())
	assert.False(t, quote.IsPlainRetweet())
	assert.False(t, plain.IsPlainRetweet())
}

func TestMetricsZeroWhenAbsent(t *testing.T) {
	p := Post{ID: "1"}
	assert.Equal(t, PublicMetrics{}, p.Metrics())

	p.PublicMetrics = &PublicMetrics{LikeCount: 3}
	assert.Equal(t, 3, p.Metrics().LikeCount)
}

func TestMergeIncludes(t *testing.T) {
	t.Run("keeps existing order and skips duplicates", func(t *testing.T) {
		existing := Includes{
			Users: []User{{ID: "1", Username: "a"}},
			Media: []Media{{MediaKey: "mk1"}},
		}
		incoming := Includes{
			Users: []User{{ID: "1", Username: "a-renamed"}, {ID: "2", Username: "b"}},
			Media: []Media{{MediaKey: "mk1"}, {MediaKey: "mk2"}},
		}

		merged := MergeIncludes(existing, incoming)
		require.Len(t, merged.Users, 2)
		// Existing record wins on identity collision.
		assert.Equal(t, "a", merged.Users[0].Username)
		assert.Equal(t, "b", merged.Users[1].Username)
		require.Len(t, merged.Media, 2)
		assert.Equal(t, "mk1", merged.Media[0].MediaKey)
		assert.Equal(t, "mk2", merged.Media[1].MediaKey)
	})

	t.Run("tweets keyed by id", func(t *testing.T) {
		existing := Includes{Tweets: []Post{{ID: "10", Text: "x"}}}
		incoming := Includes{Tweets: []Post{{ID: "10", Text: "y"}, {ID: "11", Text: "z"}}}

		merged := MergeIncludes(existing, incoming)
		require.Len(t, merged.Tweets, 2)
		assert.Equal(t, "x", merged.Tweets[0].Text)
	})

	t.Run("empty sides", func(t *testing.T) {
		inc := Includes{Users: []User{{ID: "1"}}}
		assert.Equal(t, inc.Users, MergeIncludes(Includes{}, inc).Users)
		assert.Equal(t, inc.Users, MergeIncludes(inc, Includes{}).Users)
		assert.True(t, MergeIncludes(Includes{}, Includes{}).Empty())
	})
}
