package liststore

import (
	"context"
)

// ListStore holds per-community word blocklists, keyed by community DID.
type ListStore interface {
	Get(ctx context.Context, key string) ([]string, error)
	Add(ctx context.Context, key string, terms []string) error
	Remove(ctx context.Context, key string, terms []string) error
}
