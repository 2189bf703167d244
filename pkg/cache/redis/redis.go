// Package redis is a cache.Store shared by every replica through a Redis server.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ontologymarket/catalog/pkg/cache"
)

const (
	DefaultNamespace   = "catalog:"
	defaultDialTimeout = 5 * time.Second
	defaultScanCount   = 100
)

var (
	ErrURLMissing       = errors.New("redis url or client must be specified")
	ErrTTLMissing       = errors.New("TTL must be positive")
	ErrNamespaceMissing = errors.New("redis namespace must not be empty")
)

type options func(h *Handle)

// Handle stores every entry under its namespace followed by the entry key, so
// InvalidateAll and Size only ever see the entries this Handle wrote.
type Handle struct {
	url         string
	namespace   string
	dialTimeout time.Duration
	scanCount   int64
	ownsClient  bool
	client      redis.UniversalClient
}

var _ cache.Store = (*Handle)(nil)

func WithURL(url string) options {
	return func(h *Handle) {
		h.url = url
	}
}

// WithClient makes the Handle use an existing client. The caller keeps ownership of
// it and closes it.
func WithClient(client redis.UniversalClient) options {
	return func(h *Handle) {
		h.client = client
	}
}

// WithNamespace sets the prefix of every Redis key. Replicas sharing a namespace
// share their entries and their invalidations.
func WithNamespace(namespace string) options {
	return func(h *Handle) {
		h.namespace = namespace
	}
}

func WithDialTimeout(timeout time.Duration) options {
	return func(h *Handle) {
		h.dialTimeout = timeout
	}
}

// WithScanCount is the COUNT hint of every SCAN round trip.
func WithScanCount(count int64) options {
	return func(h *Handle) {
		h.scanCount = count
	}
}

func New(opts ...options) (*Handle, error) {
	h := &Handle{
		namespace:   DefaultNamespace,
		dialTimeout: defaultDialTimeout,
		scanCount:   defaultScanCount,
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.namespace == "" {
		return nil, ErrNamespaceMissing
	}

	if h.client != nil {
		return h, nil
	}

	if h.url == "" {
		return nil, ErrURLMissing
	}

	redisOpts, err := redis.ParseURL(h.url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	redisOpts.DialTimeout = h.dialTimeout

	h.client = redis.NewClient(redisOpts)
	h.ownsClient = true
	return h, nil
}

// Ping returns the Redis server liveliness response.
func (h *Handle) Ping(ctx context.Context) error {
	return h.client.Ping(ctx).Err()
}

func (h *Handle) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := h.client.Get(ctx, h.namespace+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return val, true, nil
}

func (h *Handle) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrTTLMissing
	}
	return h.client.Set(ctx, h.namespace+key, value, ttl).Err()
}

// InvalidateAll deletes the namespace one SCAN page at a time so the server is never
// blocked by a full keyspace walk.
func (h *Handle) InvalidateAll(ctx context.Context) error {
	return h.scan(ctx, func(page []string) error {
		if len(page) == 0 {
			return nil
		}
		return h.client.Del(ctx, page...).Err()
	})
}

func (h *Handle) Size(ctx context.Context) (int, error) {
	size := 0
	err := h.scan(ctx, func(page []string) error {
		size += len(page)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return size, nil
}

func (h *Handle) Close() error {
	if !h.ownsClient {
		return nil
	}
	return h.client.Close()
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func (h *Handle) scan(ctx context.Context, fn func(page []string) error) error {
	match := globEscaper.Replace(h.namespace) + "*"

	var cursor uint64
	for {
		page, next, err := h.client.Scan(ctx, cursor, match, h.scanCount).Result()
		if err != nil {
			return err
		}
		if err := fn(page); err != nil {
			return err
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
