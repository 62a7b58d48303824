// Package search implements query predicates, creation-date windows, and the
// range splitter that defeats the 1000-result cap on GitHub search queries.
package search

import (
	"fmt"
	"time"
)

// githubEpoch is the start of the default creation-date span. Nothing on
// GitHub predates the platform's founding year.
var githubEpoch = time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC)

// Window is a half-open interval [Start, End) over creation timestamps at
// second granularity.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds a window, truncating both bounds to whole seconds.
func NewWindow(start, end time.Time) Window {
	return Window{
		Start: start.UTC().Truncate(time.Second),
		End:   end.UTC().Truncate(time.Second),
	}
}

// DefaultSpan covers everything from GitHub's founding to now.
func DefaultSpan(now time.Time) Window {
	return NewWindow(githubEpoch, now.Add(time.Second))
}

// IsEmpty returns true if the window contains no instants.
func (w Window) IsEmpty() bool {
	return !w.Start.Before(w.End)
}

// CanSplit reports whether the window spans more than one second and can
// therefore be bisected into two non-empty halves.
func (w Window) CanSplit() bool {
	return w.End.Sub(w.Start) > time.Second
}

// Split bisects the window at its midpoint. The two halves partition the
// window exactly: [Start, mid) and [mid, End), no gap and no overlap.
// Call only when CanSplit returns true.
func (w Window) Split() (Window, Window) {
	mid := w.Start.Add(w.End.Sub(w.Start) / 2).Truncate(time.Second)
	// Guard against a midpoint collapsing onto Start for 2s spans after
	// truncation on odd nanosecond offsets.
	if !mid.After(w.Start) {
		mid = w.Start.Add(time.Second)
	}
	return Window{Start: w.Start, End: mid}, Window{Start: mid, End: w.End}
}

// Intersect returns the overlap of two windows. The result may be empty.
func (w Window) Intersect(o Window) Window {
	out := w
	if o.Start.After(out.Start) {
		out.Start = o.Start
	}
	if o.End.Before(out.End) {
		out.End = o.End
	}
	return out
}

// Clause renders the window as a GitHub search qualifier. GitHub's created:
// range is inclusive on both ends, so the half-open End maps to End-1s.
func (w Window) Clause() string {
	last := w.End.Add(-time.Second)
	return fmt.Sprintf("created:%s..%s",
		w.Start.UTC().Format(time.RFC3339),
		last.UTC().Format(time.RFC3339))
}

// String implements fmt.Stringer for log output.
func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.UTC().Format(time.RFC3339), w.End.UTC().Format(time.RFC3339))
}
