// Package quota implements GitHub GraphQL request-budget tracking and request
// gating. It trusts the rateLimit block returned with every query response and
// suspends the caller when the remaining budget falls below a low-water mark.
package quota

import (
	"time"
)

// Thresholds for quota decisions.
const (
	// LowWaterMark blocks new requests until the reset epoch when the
	// remaining budget falls below this value. GitHub grants 5000 GraphQL
	// points per hour; stopping at 100 leaves headroom for in-flight retries.
	LowWaterMark = 100

	// FallbackWait is the conservative wait applied when the server never
	// reported a reset epoch.
	FallbackWait = 60 * time.Second

	// resetSkew is added on top of the reported reset epoch to absorb clock
	// drift between client and server.
	resetSkew = 5 * time.Second
)

// State represents the last server-reported request quota.
// It is scoped to a single run and never persisted.
type State struct {
	// Remaining is the number of requests allowed before the reset epoch.
	// Taken from the rateLimit.remaining field of the last response.
	Remaining int `json:"remaining"`

	// Limit is the total budget for the current window.
	Limit int `json:"limit"`

	// ResetAt is the epoch at which the budget is restored.
	// Zero when the server has not reported one yet.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last refreshed from a response.
	LastUpdate time.Time `json:"last_update"`
}

// Low returns true if the remaining budget is below the low-water mark.
func (s *State) Low() bool {
	return s.Remaining < LowWaterMark
}

// TimeUntilReset returns the duration until the budget resets, measured from
// now. A skew buffer is included so the client never wakes before the server.
// Returns FallbackWait when no reset epoch was ever reported, and 0 when the
// reset epoch has already passed.
func (s *State) TimeUntilReset(now time.Time) time.Duration {
	if s.ResetAt.IsZero() {
		return FallbackWait
	}
	d := s.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d + resetSkew
}

// Known reports whether any server response has populated this state yet.
func (s *State) Known() bool {
	return !s.LastUpdate.IsZero()
}
