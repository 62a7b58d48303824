package cache

import (
	"encoding/json"
	"time"
)

// Entry represents a cached GraphQL response body.
type Entry struct {
	// Data is the raw "data" object of the GraphQL response.
	Data json.RawMessage `json:"data"`

	// FetchedAt is when the response was fetched from the API.
	FetchedAt time.Time `json:"fetched_at"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`
}

// NewEntry creates an entry valid for the given TTL from now.
func NewEntry(data json.RawMessage, ttl time.Duration) *Entry {
	now := time.Now()
	return &Entry{
		Data:      data,
		FetchedAt: now,
		Expires:   now.Add(ttl),
	}
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
