// Package cache persists fetch results as one JSON file per local calendar
// day, so overlapping fetches for adjacent periods share their day files.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"ximport/internal/dates"
	"ximport/internal/types"
)

// Store reads and writes day caches under a single directory.
type Store struct {
	dir string
	loc *time.Location
	log *zap.Logger
}

// New creates a Store rooted at dir. The directory is created lazily on
// the first write.
func New(dir string, loc *time.Location, log *zap.Logger) *Store {
	return &Store{dir: dir, loc: loc, log: log}
}

// dayCache is the persisted unit: all posts of one local day plus the
// includes needed to render them.
type dayCache struct {
	Tweets   []types.Post   `json:"tweets"`
	Includes types.Includes `json:"includes"`
}

func (s *Store) pathFor(day string) string {
	return filepath.Join(s.dir, strings.ReplaceAll(day, "-", "")+".json")
}

// Save partitions the result's posts by local day and writes one file per
// affected day. A day's post list is replaced by the new group; its
// includes are merged with any valid existing file's includes without
// duplication. Returns the written file paths in day order.
func (s *Store) Save(res *types.FetchResult) ([]string, error) {
	groups := dates.GroupByDay(res.Tweets, s.loc)
	if len(groups) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	days := make([]string, 0, len(groups))
	for day := range groups {
		days = append(days, day)
	}
	sort.Strings(days)

	var written []string
	for _, day := range days {
		dc := dayCache{Tweets: groups[day], Includes: res.Includes}
		if existing, err := s.loadDay(day); err != nil {
			return written, err
		} else if existing != nil {
			dc.Includes = types.MergeIncludes(existing.Includes, res.Includes)
		}

		raw, err := json.MarshalIndent(dc, "", "  ")
		if err != nil {
			return written, fmt.Errorf("encode day cache %s: %w", day, err)
		}
		path := s.pathFor(day)
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return written, fmt.Errorf("write day cache %s: %w", day, err)
		}
		s.log.Debug("day cache written", zap.String("day", day), zap.Int("tweets", len(dc.Tweets)))
		written = append(written, path)
	}
	return written, nil
}

// Load reassembles a fetch result for the period from its day files. The
// read is all-or-nothing: if any day in the period is missing, unreadable
// or structurally invalid, Load reports a miss (nil result) rather than a
// partial one. Other I/O errors propagate.
func (s *Store) Load(p types.Period) (*types.FetchResult, error) {
	days := dates.DaysInPeriod(p, s.loc)
	if len(days) == 0 {
		return nil, nil
	}

	res := &types.FetchResult{FromCache: true}
	for _, day := range days {
		dc, err := s.loadDay(day)
		if err != nil {
			return nil, err
		}
		if dc == nil {
			s.log.Debug("cache miss", zap.String("day", day))
			return nil, nil
		}
		res.Tweets = append(res.Tweets, dc.Tweets...)
		res.Includes = types.MergeIncludes(res.Includes, dc.Includes)
	}
	return res, nil
}

// loadDay returns the day's cache, nil when the file is absent or its
// content is not a valid day cache, and an error for other read failures.
func (s *Store) loadDay(day string) (*dayCache, error) {
	raw, err := os.ReadFile(s.pathFor(day))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read day cache %s: %w", day, err)
	}
	if !validCache(raw) {
		s.log.Warn("discarding malformed day cache", zap.String("day", day))
		return nil, nil
	}
	var dc dayCache
	if err := json.Unmarshal(raw, &dc); err != nil {
		s.log.Warn("discarding undecodable day cache", zap.String("day", day), zap.Error(err))
		return nil, nil
	}
	return &dc, nil
}

// validCache checks the structural shape of a cache file: a JSON object
// with a "tweets" list whose elements each carry string "id" and "text"
// fields, and an optional "includes" object.
func validCache(raw []byte) bool {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return false
	}
	tweetsRaw, ok := top["tweets"]
	if !ok {
		return false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(tweetsRaw, &items); err != nil {
		return false
	}
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			return false
		}
		if !isJSONString(fields["id"]) || !isJSONString(fields["text"]) {
			return false
		}
	}
	if incRaw, ok := top["includes"]; ok {
		var inc map[string]json.RawMessage
		if err := json.Unmarshal(incRaw, &inc); err != nil {
			return false
		}
	}
	return true
}

func isJSONString(raw json.RawMessage) bool {
	if raw == nil {
		return false
	}
	var s string
	return json.Unmarshal(raw, &s) == nil
}
