package markdown

import (
	"fmt"

	"ximport/internal/types"
)

// sumMetrics totals the engagement counts over posts. Missing metric
// blocks count as zero.
func sumMetrics(posts []types.Post) types.PublicMetrics {
	var total types.PublicMetrics
	for i := range posts {
		m := posts[i].Metrics()
		total.LikeCount += m.LikeCount
		total.RetweetCount += m.RetweetCount
		total.ReplyCount += m.ReplyCount
		total.ImpressionCount += m.ImpressionCount
	}
	return total
}

// formatMetricsTable renders the per-entry metrics table for one post or
// one thread's members combined.
func formatMetricsTable(posts []types.Post) []string {
	m := sumMetrics(posts)
	return []string{
		"| Like | RT | Reply | Imp |",
		"|-----:|---:|------:|----:|",
		fmt.Sprintf("| %d | %d | %d | %d |", m.LikeCount, m.RetweetCount, m.ReplyCount, m.ImpressionCount),
	}
}

// formatAnalytics renders the day-level analytics block. Plain retweets
// are excluded from the metric sums and the Posts column but still count
// toward the estimated fetch cost.
func formatAnalytics(posts []types.Post, costPerRead float64) string {
	own := make([]types.Post, 0, len(posts))
	for _, p := range posts {
		if !p.IsPlainRetweet() {
			own = append(own, p)
		}
	}
	m := sumMetrics(own)
	cost := float64(len(posts)) * costPerRead

	lines := []string{
		"## Analytics",
		"",
		"| Posts | Like | RT | Reply | Imp | Cost |",
		"|------:|-----:|---:|------:|----:|-----:|",
		fmt.Sprintf("| %d | %d | %d | %d | %d | $%.3f |",
			len(own), m.LikeCount, m.RetweetCount, m.ReplyCount, m.ImpressionCount, cost),
	}
	return joinLines(lines)
}
