package cache

import (
	"context"
	"time"
)

// NoopStore is the Store used when caching is disabled. Every lookup misses.
type NoopStore struct{}

var _ Store = NoopStore{}

func (NoopStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NoopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NoopStore) InvalidateAll(context.Context) error { return nil }

func (NoopStore) Size(context.Context) (int, error) { return 0, nil }

func (NoopStore) Close() error { return nil }
