package commands

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/ontologymarket/catalog/pkg/cache"
	"github.com/ontologymarket/catalog/pkg/logger"
)

var searchCacheInvalidationCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "catalog",
	Name:      "search_cache_invalidation_count",
	Help:      "The total number of search cache invalidations.",
})

// Invalidator is told about every committed mutation.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// CacheInvalidator empties the search cache. Its generation counts invalidations, so a
// search that started before one can tell its result is stale.
type CacheInvalidator struct {
	store      cache.Store
	generation atomic.Uint64
	logger     logger.Logger
}

var _ Invalidator = (*CacheInvalidator)(nil)

func NewCacheInvalidator(store cache.Store, l logger.Logger) *CacheInvalidator {
	if l == nil {
		l = logger.NewNoopLogger()
	}
	return &CacheInvalidator{store: store, logger: l}
}

// Generation returns the number of invalidations issued so far.
func (i *CacheInvalidator) Generation() uint64 {
	return i.generation.Load()
}

// Invalidate bumps the generation and discards every cached page. A store failure is
// logged: entries left behind still expire with their TTL.
func (i *CacheInvalidator) Invalidate(ctx context.Context) {
	i.generation.Add(1)
	searchCacheInvalidationCounter.Inc()

	// the mutation has committed, so the clear must run even if the caller gave up
	ctx = context.WithoutCancel(ctx)
	if err := i.store.InvalidateAll(ctx); err != nil {
		i.logger.WarnWithContext(ctx, "failed to invalidate search cache", zap.Error(err))
	}
}
