// Package cache provides the response cache used by the generate and chat
// endpoints. Keys are derived from the full request so parameter changes
// never alias; values are opaque JSON payloads.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache is the response cache contract. Get returns (nil, false, nil) on a
// miss; backend errors are returned so callers can degrade to uncached.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// Key derives a stable cache key from any request value by hashing its
// canonical JSON encoding.
func Key(prefix string, req any) string {
	b, err := json.Marshal(req)
	if err != nil {
		// Marshal of our request types cannot fail; fall back to the prefix
		// alone so a broken key never poisons unrelated entries.
		return prefix + ":unkeyed"
	}
	sum := sha256.Sum256(b)
	return prefix + ":" + hex.EncodeToString(sum[:])
}
