package cache

import (
	"context"
	"sync"
	"time"

	"github.com/karlseguin/ccache/v3"
)

const (
	DefaultMaxEntries   = 128
	defaultItemsToPrune = 1
)

// InMemoryLRU is a bounded in-process Store. Entries are evicted least recently used
// first once MaxEntries is exceeded, and expire after their TTL.
//
// It is local to one process: invalidating it does not reach other replicas.
type InMemoryLRU struct {
	ccache       *ccache.Cache[[]byte]
	maxEntries   int64
	itemsToPrune uint32
	closeOnce    sync.Once
}

var _ Store = (*InMemoryLRU)(nil)

type InMemoryLRUOption func(*InMemoryLRU)

// WithMaxEntries bounds the number of entries the cache holds.
func WithMaxEntries(n int64) InMemoryLRUOption {
	return func(c *InMemoryLRU) {
		c.maxEntries = n
	}
}

// WithItemsToPrune sets how many entries are evicted at once when the bound is exceeded.
func WithItemsToPrune(n uint32) InMemoryLRUOption {
	return func(c *InMemoryLRU) {
		c.itemsToPrune = n
	}
}

func NewInMemoryLRU(opts ...InMemoryLRUOption) *InMemoryLRU {
	c := &InMemoryLRU{
		maxEntries:   DefaultMaxEntries,
		itemsToPrune: defaultItemsToPrune,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.ccache = ccache.New(ccache.Configure[[]byte]().
		MaxSize(c.maxEntries).
		ItemsToPrune(c.itemsToPrune),
	)
	return c
}

func (c *InMemoryLRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	item := c.ccache.Get(key)
	if item == nil || item.Expired() {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

func (c *InMemoryLRU) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.ccache.Set(key, value, ttl)
	return nil
}

func (c *InMemoryLRU) InvalidateAll(_ context.Context) error {
	c.ccache.Clear()
	return nil
}

func (c *InMemoryLRU) Size(_ context.Context) (int, error) {
	return c.ccache.ItemCount(), nil
}

func (c *InMemoryLRU) Close() error {
	c.closeOnce.Do(func() {
		c.ccache.Stop()
	})
	return nil
}
