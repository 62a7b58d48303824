package search

import (
	"testing"
	"time"
)

func TestWindow_Split_PartitionsExactly(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{
			name:  "even span",
			start: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2015, 1, 1, 0, 0, 10, 0, time.UTC),
		},
		{
			name:  "odd span",
			start: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2015, 1, 1, 0, 0, 3, 0, time.UTC),
		},
		{
			name:  "multi-year span",
			start: time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 6, 15, 12, 30, 45, 0, time.UTC),
		},
		{
			name:  "minimal splittable span",
			start: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2015, 1, 1, 0, 0, 2, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWindow(tt.start, tt.end)
			if !w.CanSplit() {
				t.Fatalf("window %s should be splittable", w)
			}

			left, right := w.Split()

			// No gap, no overlap: left ends exactly where right begins.
			if !left.End.Equal(right.Start) {
				t.Errorf("gap or overlap: left ends %v, right starts %v", left.End, right.Start)
			}
			if !left.Start.Equal(w.Start) {
				t.Errorf("left starts %v, want %v", left.Start, w.Start)
			}
			if !right.End.Equal(w.End) {
				t.Errorf("right ends %v, want %v", right.End, w.End)
			}

			// Both halves non-empty.
			if left.IsEmpty() {
				t.Error("left half is empty")
			}
			if right.IsEmpty() {
				t.Error("right half is empty")
			}
		})
	}
}

func TestWindow_CanSplit(t *testing.T) {
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

	oneSecond := NewWindow(start, start.Add(time.Second))
	if oneSecond.CanSplit() {
		t.Error("single-second window must not be splittable")
	}

	twoSeconds := NewWindow(start, start.Add(2*time.Second))
	if !twoSeconds.CanSplit() {
		t.Error("two-second window must be splittable")
	}
}

func TestWindow_Intersect(t *testing.T) {
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	w := func(startOffset, endOffset int) Window {
		return NewWindow(base.Add(time.Duration(startOffset)*time.Hour), base.Add(time.Duration(endOffset)*time.Hour))
	}

	tests := []struct {
		name     string
		a, b     Window
		expected Window
		empty    bool
	}{
		{
			name:     "overlapping",
			a:        w(0, 10),
			b:        w(5, 15),
			expected: w(5, 10),
		},
		{
			name:     "contained",
			a:        w(0, 10),
			b:        w(2, 4),
			expected: w(2, 4),
		},
		{
			name:  "disjoint yields empty",
			a:     w(0, 5),
			b:     w(6, 10),
			empty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Intersect(tt.b)
			if tt.empty {
				if !got.IsEmpty() {
					t.Errorf("Intersect() = %s, want empty", got)
				}
				return
			}
			if !got.Start.Equal(tt.expected.Start) || !got.End.Equal(tt.expected.End) {
				t.Errorf("Intersect() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestWindow_Clause_InclusiveEnd(t *testing.T) {
	w := NewWindow(
		time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC),
	)

	want := "created:2015-01-01T00:00:00Z..2015-12-31T23:59:59Z"
	if got := w.Clause(); got != want {
		t.Errorf("Clause() = %q, want %q", got, want)
	}
}

func TestDefaultSpan(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	w := DefaultSpan(now)

	if !w.Start.Equal(time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DefaultSpan start = %v, want GitHub founding", w.Start)
	}
	if !w.End.After(now) {
		t.Errorf("DefaultSpan end = %v, must cover now (%v)", w.End, now)
	}
}
