//go:generate mockgen -source cache.go -destination ../../internal/mocks/mock_cache_store.go -package mocks Store

// Package cache holds the stores backing the search cache.
package cache

import (
	"context"
	"time"
)

// Store is a key-value store with per-entry TTL. Implementations are safe for concurrent
// use. Any error returned by a Store is advisory: callers treat it as a miss or a no-op.
type Store interface {
	// Get returns the value stored under key. The boolean is false on a miss or an
	// expired entry.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// InvalidateAll discards every entry of the store's namespace.
	InvalidateAll(ctx context.Context) error

	// Size reports the number of entries currently held. It may count entries that
	// have expired but were not collected yet.
	Size(ctx context.Context) (int, error)

	// Close releases the resources held by the store.
	Close() error
}
