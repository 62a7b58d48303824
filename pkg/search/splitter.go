package search

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexanderquispe/github-repo-fetcher/pkg/gh"
)

// ResultCap is the hard ceiling GitHub places on any single search query.
const ResultCap = 1000

// accountPageSize is the page size for account searches. Account nodes are
// cheap, so pages run at the API maximum.
const accountPageSize = 100

// TruncationPolicy decides what happens when a window has collapsed to a
// single second yet still exceeds the result cap.
type TruncationPolicy int

const (
	// TruncationAccept takes the first ResultCap entities and logs the loss.
	TruncationAccept TruncationPolicy = iota
	// TruncationError surfaces the condition as an enumeration error.
	TruncationError
)

// AccountSearcher is the slice of the API client the splitter needs.
type AccountSearcher interface {
	CountAccounts(ctx context.Context, query string) (int, error)
	SearchAccounts(ctx context.Context, query string, first int, after string) (*gh.AccountPage, error)
}

// Splitter partitions an account predicate along its creation-date span until
// every partition fits under the result cap, then paginates each partition.
type Splitter struct {
	client     AccountSearcher
	truncation TruncationPolicy
	logger     zerolog.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewSplitter creates a splitter over the given searcher.
func NewSplitter(client AccountSearcher, truncation TruncationPolicy, logger zerolog.Logger) *Splitter {
	return &Splitter{
		client:     client,
		truncation: truncation,
		logger:     logger,
		now:        time.Now,
	}
}

// SetNow overrides the splitter's clock (for testing).
func (s *Splitter) SetNow(now func() time.Time) {
	s.now = now
}

// Enumerate returns a lazy, forward-only enumeration of the accounts matching
// the predicate. Windows are processed ascending by start; within a window
// results come back in the server's default order. The enumeration is not
// restartable: iterating again re-issues all network calls.
func (s *Splitter) Enumerate(p Predicate) *Enumeration {
	window, ok := p.Window()
	if !ok {
		window = DefaultSpan(s.now())
	}
	return &Enumeration{
		splitter: s,
		base:     p,
		stack:    []Window{window},
	}
}

// Enumeration is a synchronous iterator over enumerated accounts, in the
// style of bufio.Scanner: Next advances, Account returns the current element,
// Err reports the terminal error after Next returns false.
type Enumeration struct {
	splitter *Splitter
	base     Predicate

	// stack is the work stack of unprobed windows, processed LIFO so that
	// split halves are handled before later siblings. Iterative on purpose:
	// adversarial timestamp distributions must not grow the call stack.
	stack []Window

	// Pagination state of the window currently being drained.
	active    bool
	predicate Predicate
	cursor    Cursor
	limit     int // 0 = drain fully, otherwise stop after limit entities

	buf []gh.Account
	idx int

	current gh.Account
	err     error
	done    bool
}

// Next advances to the next account. It returns false when the enumeration is
// exhausted or failed; Err distinguishes the two.
func (e *Enumeration) Next(ctx context.Context) bool {
	if e.done {
		return false
	}
	for {
		if e.idx < len(e.buf) {
			e.current = e.buf[e.idx]
			e.idx++
			return true
		}

		if e.active {
			if e.cursor.HasNext && (e.limit == 0 || e.cursor.Fetched < e.limit) {
				if !e.fetchPage(ctx) {
					return false
				}
				continue
			}
			e.active = false
		}

		if !e.nextWindow(ctx) {
			return false
		}
	}
}

// Account returns the account produced by the last successful Next.
func (e *Enumeration) Account() gh.Account {
	return e.current
}

// Err returns the error that terminated the enumeration, if any.
func (e *Enumeration) Err() error {
	return e.err
}

// nextWindow pops windows off the work stack until one begins paginating or
// the stack drains. Returns false when the enumeration should stop.
func (e *Enumeration) nextWindow(ctx context.Context) bool {
	s := e.splitter
	for len(e.stack) > 0 {
		if err := ctx.Err(); err != nil {
			return e.fail(err)
		}

		window := e.stack[len(e.stack)-1]
		e.stack = e.stack[:len(e.stack)-1]

		if window.IsEmpty() {
			continue
		}

		pred := e.base.WithWindow(window)
		count, err := s.client.CountAccounts(ctx, pred.String())
		if err != nil {
			return e.fail(err)
		}

		s.logger.Debug().
			Stringer("window", window).
			Int("count", count).
			Msg("Window probed")

		switch {
		case count == 0:
			continue

		case count <= ResultCap:
			e.startWindow(pred, 0)
			return true

		case window.CanSplit():
			left, right := window.Split()
			// Right pushed first so the left half pops next: ascending order.
			e.stack = append(e.stack, right, left)

		default:
			// Collapsed to a single second and still over the cap. The
			// ordering key cannot discriminate further.
			s.logger.Warn().
				Stringer("window", window).
				Int("count", count).
				Int("cap", ResultCap).
				Msg("Window truncated - unsplittable span exceeds result cap")
			if s.truncation == TruncationError {
				return e.fail(&TruncationErr{Window: window, Count: count})
			}
			e.startWindow(pred, ResultCap)
			return true
		}
	}
	e.done = true
	return false
}

// startWindow begins draining a window's pages.
func (e *Enumeration) startWindow(pred Predicate, limit int) {
	e.active = true
	e.predicate = pred
	e.cursor = Cursor{HasNext: true}
	e.limit = limit
	e.buf = nil
	e.idx = 0
}

// fetchPage pulls the next page of the active window into the buffer.
func (e *Enumeration) fetchPage(ctx context.Context) bool {
	first := accountPageSize
	if e.limit > 0 && e.limit-e.cursor.Fetched < first {
		first = e.limit - e.cursor.Fetched
	}

	page, err := e.splitter.client.SearchAccounts(ctx, e.predicate.String(), first, e.cursor.After)
	if err != nil {
		return e.fail(err)
	}

	e.cursor.Advance(page.PageInfo, len(page.Accounts))
	e.buf = page.Accounts
	e.idx = 0

	if len(page.Accounts) == 0 {
		e.active = false
	}
	return true
}

func (e *Enumeration) fail(err error) bool {
	e.err = err
	e.done = true
	return false
}
