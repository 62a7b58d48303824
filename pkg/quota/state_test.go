package quota

import (
	"testing"
	"time"
)

func TestState_Low(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		expected  bool
	}{
		{
			name:      "well above low-water mark",
			remaining: 4000,
			expected:  false,
		},
		{
			name:      "at low-water mark",
			remaining: LowWaterMark,
			expected:  false,
		},
		{
			name:      "just below low-water mark",
			remaining: LowWaterMark - 1,
			expected:  true,
		},
		{
			name:      "zero remaining",
			remaining: 0,
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &State{Remaining: tt.remaining}
			if got := state.Low(); got != tt.expected {
				t.Errorf("Low() = %v, want %v (remaining=%d)", got, tt.expected, tt.remaining)
			}
		})
	}
}

func TestState_TimeUntilReset(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		resetAt  time.Time
		expected time.Duration
	}{
		{
			name:     "reset in future includes skew buffer",
			resetAt:  now.Add(10 * time.Minute),
			expected: 10*time.Minute + resetSkew,
		},
		{
			name:     "reset already passed",
			resetAt:  now.Add(-10 * time.Minute),
			expected: 0,
		},
		{
			name:     "no reset epoch reported falls back to fixed wait",
			resetAt:  time.Time{},
			expected: FallbackWait,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &State{ResetAt: tt.resetAt}
			if got := state.TimeUntilReset(now); got != tt.expected {
				t.Errorf("TimeUntilReset() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_Known(t *testing.T) {
	var state State
	if state.Known() {
		t.Error("Zero state should not be known")
	}

	state.LastUpdate = time.Now()
	if !state.Known() {
		t.Error("Updated state should be known")
	}
}
