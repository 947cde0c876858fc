// Package dates converts instants into the local calendar days used for
// cache partitioning and document grouping.
package dates

import (
	"time"

	"ximport/internal/types"
)

// KeyFormat is the canonical day-key layout.
const KeyFormat = "2006-01-02"

// DayKey returns the calendar date of t in loc as YYYY-MM-DD.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(KeyFormat)
}

// DaysInPeriod returns the ordered list of day keys whose local
// midnight-to-midnight window intersects the half-open period
// [p.Start, p.End). An empty period yields nil.
func DaysInPeriod(p types.Period, loc *time.Location) []string {
	if !p.Start.Before(p.End) {
		return nil
	}
	local := p.Start.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	var days []string
	for day.Before(p.End) {
		days = append(days, day.Format(KeyFormat))
		day = day.AddDate(0, 0, 1)
	}
	return days
}

// GroupByDay buckets posts by their local calendar day. Order within a
// bucket follows the input order.
func GroupByDay(posts []types.Post, loc *time.Location) map[string][]types.Post {
	groups := make(map[string][]types.Post)
	for _, p := range posts {
		key := DayKey(p.CreatedAt, loc)
		groups[key] = append(groups[key], p)
	}
	return groups
}
