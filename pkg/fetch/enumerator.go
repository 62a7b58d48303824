// Package fetch composes the search, quota, and sink layers into the three
// collection workflows: location-based two-step, direct query, and single
// repository.
package fetch

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/alexanderquispe/github-repo-fetcher/pkg/record"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/search"
)

// AccountEnumerator discovers the accounts matching a location, users first,
// then organizations when enabled.
type AccountEnumerator struct {
	splitter *search.Splitter
	logger   zerolog.Logger
}

// NewAccountEnumerator creates an enumerator over the given splitter.
func NewAccountEnumerator(splitter *search.Splitter, logger zerolog.Logger) *AccountEnumerator {
	return &AccountEnumerator{splitter: splitter, logger: logger}
}

// Enumerate returns a lazy iterator over distinct accounts in the location.
// maxUsers > 0 stops enumeration as soon as that many distinct accounts have
// been yielded, skipping any remaining windows.
func (e *AccountEnumerator) Enumerate(location string, includeOrgs bool, maxUsers int) *AccountIter {
	predicates := []search.Predicate{search.ForLocation(location, "user")}
	if includeOrgs {
		predicates = append(predicates, search.ForLocation(location, "org"))
	}
	return &AccountIter{
		enumerator: e,
		pending:    predicates,
		seen:       make(map[string]bool),
		max:        maxUsers,
	}
}

// AccountIter iterates accounts across one or more underlying enumerations,
// deduplicating by login. Windows are disjoint by construction; the dedup
// guards against boundary double-counts and against accounts matching both
// the user and the organization pass.
type AccountIter struct {
	enumerator *AccountEnumerator
	pending    []search.Predicate
	active     *search.Enumeration

	seen    map[string]bool
	max     int
	yielded int

	current record.AccountRecord
	err     error
	done    bool
}

// Next advances to the next distinct account. Returns false on exhaustion,
// cutoff, or error; Err distinguishes failure from completion.
func (it *AccountIter) Next(ctx context.Context) bool {
	if it.done {
		return false
	}
	for {
		if it.max > 0 && it.yielded >= it.max {
			it.enumerator.logger.Info().
				Int("max_users", it.max).
				Msg("Account cutoff reached, stopping enumeration")
			it.done = true
			return false
		}

		if it.active == nil {
			if len(it.pending) == 0 {
				it.done = true
				return false
			}
			it.active = it.enumerator.splitter.Enumerate(it.pending[0])
			it.pending = it.pending[1:]
		}

		if !it.active.Next(ctx) {
			if err := it.active.Err(); err != nil {
				it.err = err
				it.done = true
				return false
			}
			it.active = nil
			continue
		}

		account := it.active.Account()
		if account.Login == "" || it.seen[account.Login] {
			continue
		}
		it.seen[account.Login] = true
		it.yielded++
		it.current = record.FromAccount(account)
		return true
	}
}

// Account returns the account produced by the last successful Next.
func (it *AccountIter) Account() record.AccountRecord {
	return it.current
}

// Err returns the error that terminated the iteration, if any.
func (it *AccountIter) Err() error {
	return it.err
}
