package markdown

import (
	"slices"

	"ximport/internal/types"
)

// detectThreads finds maximal self-reply chains within one day's posts.
// A chain links posts where each member replies to another post of the
// same day. Discovery starts from the tails (posts nothing in the set
// replies to) and walks parent links upward; only chains of two or more
// posts are recorded. Replies to posts outside the day's set never chain.
//
// Returns the chains keyed by head id (members in chronological order) and
// the set of non-head member ids, which must not render standalone.
func detectThreads(posts []types.Post) (map[string][]types.Post, map[string]struct{}) {
	byID := make(map[string]types.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	childToParent := make(map[string]string)
	for _, p := range posts {
		for _, ref := range p.ReferencedTweets {
			if ref.Type != types.RefRepliedTo {
				continue
			}
			if _, ok := byID[ref.ID]; ok {
				childToParent[p.ID] = ref.ID
			}
		}
	}

	parents := make(map[string]struct{}, len(childToParent))
	for _, parent := range childToParent {
		parents[parent] = struct{}{}
	}

	heads := make(map[string][]types.Post)
	suppressed := make(map[string]struct{})

	for _, p := range posts {
		if _, isParent := parents[p.ID]; isParent {
			continue // not a tail
		}

		var chainIDs []string
		walked := make(map[string]struct{})
		for cur := p.ID; cur != ""; cur = childToParent[cur] {
			if _, seen := walked[cur]; seen {
				break // reply cycle, stop the walk
			}
			walked[cur] = struct{}{}
			chainIDs = append(chainIDs, cur)
		}
		if len(chainIDs) < 2 {
			continue
		}
		slices.Reverse(chainIDs)

		chain := make([]types.Post, len(chainIDs))
		for i, id := range chainIDs {
			chain[i] = byID[id]
		}
		heads[chainIDs[0]] = chain
		for _, id := range chainIDs[1:] {
			suppressed[id] = struct{}{}
		}
	}

	return heads, suppressed
}
