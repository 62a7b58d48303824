// Package cache provides optional Redis-backed caching of GraphQL responses.
// A cache hit replays a previous response without spending any request quota,
// which makes repeated probes (count queries, single-repository fetches)
// effectively free across runs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key identifies a cached GraphQL response.
type Key struct {
	// Operation is the logical operation name (e.g. "CountAccounts").
	Operation string

	// Query is the full GraphQL document.
	Query string

	// Variables are the operation variables.
	Variables map[string]any
}

// String generates a deterministic cache key string.
// Format: ghfetch:<operation>:<digest>
//
// The digest covers the query document and the variables, so a change to
// either produces a distinct key. encoding/json sorts map keys, which keeps
// the digest stable across runs.
func (k Key) String() string {
	h := sha256.New()
	h.Write([]byte(k.Query))
	if len(k.Variables) > 0 {
		vars, err := json.Marshal(k.Variables)
		if err == nil {
			h.Write(vars)
		}
	}
	digest := hex.EncodeToString(h.Sum(nil))[:16]
	return fmt.Sprintf("ghfetch:%s:%s", k.Operation, digest)
}
