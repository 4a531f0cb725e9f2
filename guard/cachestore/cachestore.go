package cachestore

import (
	"context"
)

// CacheStore caches small serialized snapshots (account meta, trust
// classifications) with a TTL. A miss returns the empty string, not an error.
type CacheStore interface {
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}
