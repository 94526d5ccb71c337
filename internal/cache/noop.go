package cache

import (
	"context"
	"time"
)

// NoopCache misses every lookup and drops every write. Used when caching is
// disabled so handlers never branch on a nil cache.
type NoopCache struct{}

func NewNoop() NoopCache { return NoopCache{} }

func (NoopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NoopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NoopCache) Ping(context.Context) error { return nil }
func (NoopCache) Close() error { return nil }
