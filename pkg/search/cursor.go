package search

import (
	"github.com/alexanderquispe/github-repo-fetcher/pkg/gh"
)

// Cursor tracks position within a paginated result set: the opaque
// continuation token, whether more pages exist, and how many entities have
// been consumed so far. Cursors only move forward; an exhausted cursor is
// never re-issued.
type Cursor struct {
	// After is the opaque endCursor of the last fetched page.
	After string

	// HasNext reports whether the server indicated another page.
	HasNext bool

	// Fetched counts entities consumed through this cursor.
	Fetched int
}

// Advance moves the cursor past a fetched page.
func (c *Cursor) Advance(pi gh.PageInfo, pageSize int) {
	c.After = pi.EndCursor
	c.HasNext = pi.HasNextPage
	c.Fetched += pageSize
}
