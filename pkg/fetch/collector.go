package fetch

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/alexanderquispe/github-repo-fetcher/pkg/gh"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/record"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/search"
)

// repoPageSize is the page size for repository searches. Each node carries
// the README blob, so pages stay small to keep query cost bounded.
const repoPageSize = 10

// RepoSearcher is the slice of the API client the collector needs.
type RepoSearcher interface {
	SearchRepositories(ctx context.Context, query string, first int, after string) (*gh.RepositoryPage, error)
}

// Filters narrows which repositories a collection run accepts.
type Filters struct {
	// MinStars is the star floor applied in the search qualifier.
	MinStars int

	// IncludeForks admits forked repositories. Off by default.
	IncludeForks bool

	// Extra is a raw qualifier string appended verbatim (language:, license:,
	// pushed:, topic:, ...).
	Extra string

	// Location, when set, keeps only rows whose owner location contains it
	// (case-insensitive). Repository search has no location qualifier, so
	// this runs client-side after the fetch.
	Location string
}

// RepositoryCollector pages through repository searches and flattens the
// results into output rows.
type RepositoryCollector struct {
	client RepoSearcher
	logger zerolog.Logger
}

// NewRepositoryCollector creates a collector over the given searcher.
func NewRepositoryCollector(client RepoSearcher, logger zerolog.Logger) *RepositoryCollector {
	return &RepositoryCollector{client: client, logger: logger}
}

// ForAccount fetches every matching repository of one account, with the
// account's profile denormalized onto each row. The result is all-or-nothing:
// a page failure discards the account's rows so a partially fetched account
// never leaks into the output.
func (c *RepositoryCollector) ForAccount(ctx context.Context, owner record.AccountRecord, f Filters) ([]record.RepositoryRecord, error) {
	pred := search.ForOwner(owner.Login, f.MinStars, f.IncludeForks, f.Extra)

	var rows []record.RepositoryRecord
	var cursor search.Cursor
	cursor.HasNext = true

	for cursor.HasNext {
		page, err := c.client.SearchRepositories(ctx, pred.String(), repoPageSize, cursor.After)
		if err != nil {
			return nil, err
		}
		cursor.Advance(page.PageInfo, len(page.Repositories))

		for _, node := range page.Repositories {
			rec := record.FromRepositoryNode(node)
			if !c.keep(&rec, f) {
				continue
			}
			rec.Denormalize(owner)
			rows = append(rows, rec)
		}

		if len(page.Repositories) == 0 {
			break
		}
	}

	c.logger.Debug().
		Str("login", owner.Login).
		Int("records", len(rows)).
		Msg("Account collected")
	return rows, nil
}

// Collect streams the repositories matching a direct query predicate into
// yield, page by page, until exhaustion or the maxRepos ceiling. Returns the
// number of rows yielded.
func (c *RepositoryCollector) Collect(ctx context.Context, pred search.Predicate, f Filters, maxRepos int, yield func(record.RepositoryRecord) error) (int, error) {
	var cursor search.Cursor
	cursor.HasNext = true
	yielded := 0

	for cursor.HasNext && (maxRepos <= 0 || yielded < maxRepos) {
		page, err := c.client.SearchRepositories(ctx, pred.String(), repoPageSize, cursor.After)
		if err != nil {
			return yielded, err
		}
		cursor.Advance(page.PageInfo, len(page.Repositories))

		for _, node := range page.Repositories {
			if maxRepos > 0 && yielded >= maxRepos {
				break
			}
			rec := record.FromRepositoryNode(node)
			if !c.keep(&rec, f) {
				continue
			}
			if err := yield(rec); err != nil {
				return yielded, err
			}
			yielded++
		}

		if len(page.Repositories) == 0 {
			break
		}
	}
	return yielded, nil
}

// keep applies the client-side guards: the fork filter is enforced here even
// though the search qualifier already excludes forks, and the location
// post-filter runs here because repository search has no location qualifier.
func (c *RepositoryCollector) keep(rec *record.RepositoryRecord, f Filters) bool {
	if rec.IsFork && !f.IncludeForks {
		return false
	}
	if f.Location != "" &&
		!strings.Contains(strings.ToLower(rec.OwnerLocation), strings.ToLower(f.Location)) {
		return false
	}
	return true
}
