package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/alexanderquispe/github-repo-fetcher/pkg/gh"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/progress"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/quota"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/record"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/search"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/sink"
)

// Client is the slice of the API client the fetcher needs.
type Client interface {
	search.AccountSearcher
	RepoSearcher
	FetchRepository(ctx context.Context, owner, name string) (*gh.Repository, error)
	ProbeRateLimit(ctx context.Context) (quota.State, error)
}

// Options configures a collection run.
type Options struct {
	// MinStars is the star floor. Zero means no floor beyond stars:>=0.
	MinStars int

	// IncludeForks admits forked repositories into the output.
	IncludeForks bool

	// Filter is a raw qualifier string appended to every repository search.
	Filter string

	// Location post-filters query-mode rows by owner location.
	Location string

	// IncludeOrgs enumerates organizations in addition to users.
	IncludeOrgs bool

	// MaxUsers caps how many distinct accounts are enumerated (0 = no cap).
	MaxUsers int

	// MaxRepos caps query-mode results (0 = no cap).
	MaxRepos int

	// Truncation decides what happens when an unsplittable window still
	// exceeds the search result cap.
	Truncation search.TruncationPolicy
}

// Stats summarizes a finished run.
type Stats struct {
	Records  int
	Accounts int
	Failures int

	// FailedLogins lists the accounts skipped after exhausting retries.
	FailedLogins []string
}

// Fetcher wires the enumerator, collector, and sink into complete workflows.
// Accounts and pages are processed strictly sequentially: the request quota
// is one global budget and pagination is inherently serial per query.
type Fetcher struct {
	client   Client
	sink     *sink.Checkpointer
	reporter progress.Reporter
	logger   zerolog.Logger
}

// New creates a fetcher. A nil reporter defaults to the silent one.
func New(client Client, out *sink.Checkpointer, reporter progress.Reporter, logger zerolog.Logger) *Fetcher {
	if reporter == nil {
		reporter = progress.Nop{}
	}
	return &Fetcher{
		client:   client,
		sink:     out,
		reporter: reporter,
		logger:   logger,
	}
}

// FetchByLocation runs the two-step workflow: enumerate accounts in the
// location, then collect each account's repositories. Account-scoped
// failures are counted and skipped; the run continues. The sink is always
// finalized, also on cancellation, so no checkpointed work is dropped.
func (f *Fetcher) FetchByLocation(ctx context.Context, location string, opts Options) (results []record.RepositoryRecord, stats Stats, err error) {
	defer f.finalize(&err)

	f.reporter.RunStarted(fmt.Sprintf("fetching repositories of accounts in %q", location))
	f.probeQuota(ctx)

	splitter := search.NewSplitter(f.client, opts.Truncation, f.logger)
	enumerator := NewAccountEnumerator(splitter, f.logger)
	collector := NewRepositoryCollector(f.client, f.logger)
	filters := Filters{
		MinStars:     opts.MinStars,
		IncludeForks: opts.IncludeForks,
		Extra:        opts.Filter,
	}

	iter := enumerator.Enumerate(location, opts.IncludeOrgs, opts.MaxUsers)
	for iter.Next(ctx) {
		account := iter.Account()
		stats.Accounts++
		f.reporter.AccountStarted(account.Login, stats.Accounts, 0)

		rows, cerr := collector.ForAccount(ctx, account, filters)
		if cerr != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
				return results, stats, err
			}
			// Account-scoped failure: report, skip, continue.
			stats.Failures++
			stats.FailedLogins = append(stats.FailedLogins, account.Login)
			f.reporter.AccountFailed(account.Login, cerr)
			f.logger.Warn().
				Err(cerr).
				Str("login", account.Login).
				Msg("Account skipped after collection failure")
			continue
		}

		for _, row := range rows {
			if serr := f.offer(row, &results, &stats); serr != nil {
				return results, stats, serr
			}
		}
		f.reporter.AccountDone(account.Login, len(rows))
	}
	if ierr := iter.Err(); ierr != nil {
		err = ierr
		return results, stats, err
	}

	f.finishRun(ctx, stats)
	return results, stats, nil
}

// FetchByQuery runs a single repository search built from a caller-supplied
// query string, bounded by MaxRepos.
func (f *Fetcher) FetchByQuery(ctx context.Context, query string, opts Options) (results []record.RepositoryRecord, stats Stats, err error) {
	defer f.finalize(&err)

	f.reporter.RunStarted(fmt.Sprintf("fetching repositories matching %q", query))
	f.probeQuota(ctx)

	pred := search.ForQuery(query, opts.MinStars)
	if !opts.IncludeForks {
		pred = pred.With("fork:false")
	}
	// Broad queries return the most interesting results first.
	pred = pred.With("sort:stars")

	collector := NewRepositoryCollector(f.client, f.logger)
	filters := Filters{
		MinStars:     opts.MinStars,
		IncludeForks: opts.IncludeForks,
		Location:     opts.Location,
	}

	_, err = collector.Collect(ctx, pred, filters, opts.MaxRepos, func(row record.RepositoryRecord) error {
		return f.offer(row, &results, &stats)
	})
	if err != nil {
		return results, stats, err
	}

	f.finishRun(ctx, stats)
	return results, stats, nil
}

// FetchRepo fetches one repository by exact owner and name, bypassing search.
func (f *Fetcher) FetchRepo(ctx context.Context, owner, name string) (rec record.RepositoryRecord, err error) {
	defer f.finalize(&err)

	f.reporter.RunStarted(fmt.Sprintf("fetching %s/%s", owner, name))

	node, ferr := f.client.FetchRepository(ctx, owner, name)
	if ferr != nil {
		return record.RepositoryRecord{}, ferr
	}

	rec = record.FromRepositoryNode(node)
	var stats Stats
	var results []record.RepositoryRecord
	if serr := f.offer(rec, &results, &stats); serr != nil {
		return rec, serr
	}
	f.reporter.RunDone(1, 0, 0)
	return rec, nil
}

// offer routes one row into the sink and the in-memory result set.
func (f *Fetcher) offer(row record.RepositoryRecord, results *[]record.RepositoryRecord, stats *Stats) error {
	if err := f.sink.Offer(row); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	*results = append(*results, row)
	stats.Records++
	if stats.Records%sink.DefaultInterval == 0 {
		f.reporter.Checkpoint(stats.Records)
	}
	return nil
}

// finalize flushes the sink exactly once per run, keeping the first error.
func (f *Fetcher) finalize(err *error) {
	if ferr := f.sink.Finalize(); ferr != nil && *err == nil {
		*err = fmt.Errorf("finalize output: %w", ferr)
	}
	if *err != nil && errors.Is(*err, context.Canceled) {
		f.logger.Info().Msg("Run cancelled, checkpointed records kept")
	}
}

// probeQuota reports the current quota before any search traffic.
func (f *Fetcher) probeQuota(ctx context.Context) {
	state, err := f.client.ProbeRateLimit(ctx)
	if err != nil {
		f.logger.Warn().Err(err).Msg("Rate limit probe failed")
		return
	}
	f.reporter.QuotaStatus(state.Remaining, state.Limit)
	f.logger.Info().
		Int("remaining", state.Remaining).
		Int("limit", state.Limit).
		Time("reset_at", state.ResetAt).
		Msg("Rate limit status")
}

// finishRun emits the end-of-run status.
func (f *Fetcher) finishRun(ctx context.Context, stats Stats) {
	if state, err := f.client.ProbeRateLimit(ctx); err == nil {
		f.reporter.QuotaStatus(state.Remaining, state.Limit)
	}
	f.reporter.RunDone(stats.Records, stats.Accounts, stats.Failures)
}
