package markdown

import "ximport/internal/types"

// RefPost is the renderer's view of a referenced post: the cached post
// plus its resolved author handle. Cached posts are never mutated; the
// handle lives only on this view.
type RefPost struct {
	types.Post
	AuthorHandle string
}

// RefGraph maps post id to its enriched view. Built per render, never
// persisted.
type RefGraph map[string]*RefPost

// BuildRefGraph indexes the includes side-table by post id, resolving each
// referenced post's author handle (empty when the author is unknown).
func BuildRefGraph(inc types.Includes) RefGraph {
	handles := make(map[string]string, len(inc.Users))
	for _, u := range inc.Users {
		handles[u.ID] = u.Username
	}

	graph := make(RefGraph, len(inc.Tweets))
	for _, t := range inc.Tweets {
		graph[t.ID] = &RefPost{Post: t, AuthorHandle: handles[t.AuthorID]}
	}
	return graph
}
