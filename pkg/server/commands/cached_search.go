package commands

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ontologymarket/catalog/internal/keys"
	"github.com/ontologymarket/catalog/pkg/cache"
	"github.com/ontologymarket/catalog/pkg/logger"
	serverErrors "github.com/ontologymarket/catalog/pkg/server/errors"
	"github.com/ontologymarket/catalog/pkg/storage"
)

const (
	defaultSearchCacheTTL      = 300 * time.Second
	defaultSearchFlightTimeout = 10 * time.Second
)

var (
	searchCacheTotalCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "catalog",
		Name:      "search_cache_total_count",
		Help:      "The total number of cached search executions.",
	})

	searchCacheHitCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "catalog",
		Name:      "search_cache_hit_count",
		Help:      "The total number of search pages served from the cache.",
	})

	searchCacheErrorCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "catalog",
		Name:      "search_cache_error_count",
		Help:      "The total number of failed search cache reads, writes and decodes.",
	})
)

// Generation reports how many invalidations have happened. [CacheInvalidator]
// implements it.
type Generation interface {
	Generation() uint64
}

type noGeneration struct{}

func (noGeneration) Generation() uint64 { return 0 }

// CachedSearchQuery serves search pages from a cache store before delegating to another
// SearchExecutor. Pages are cached per identity.
type CachedSearchQuery struct {
	delegate      SearchExecutor
	store         cache.Store
	ttl           time.Duration
	flightTimeout time.Duration
	generation    Generation
	group         singleflight.Group
	logger        logger.Logger
}

var _ SearchExecutor = (*CachedSearchQuery)(nil)

type CachedSearchQueryOption func(*CachedSearchQuery)

// WithSearchCacheTTL sets how long a page stays cached.
func WithSearchCacheTTL(ttl time.Duration) CachedSearchQueryOption {
	return func(c *CachedSearchQuery) {
		c.ttl = ttl
	}
}

// WithSearchFlightTimeout bounds a delegated search shared by concurrent callers. The
// shared search does not end when one of its callers gives up, so it needs its own
// deadline. Zero or less leaves it unbounded.
func WithSearchFlightTimeout(timeout time.Duration) CachedSearchQueryOption {
	return func(c *CachedSearchQuery) {
		c.flightTimeout = timeout
	}
}

// WithSearchCacheGeneration sets the invalidation counter consulted before a fresh page
// is stored.
func WithSearchCacheGeneration(g Generation) CachedSearchQueryOption {
	return func(c *CachedSearchQuery) {
		c.generation = g
	}
}

func WithCachedSearchQueryLogger(l logger.Logger) CachedSearchQueryOption {
	return func(c *CachedSearchQuery) {
		c.logger = l
	}
}

func NewCachedSearchQuery(delegate SearchExecutor, store cache.Store, opts ...CachedSearchQueryOption) *CachedSearchQuery {
	c := &CachedSearchQuery{
		delegate:      delegate,
		store:         store,
		ttl:           defaultSearchCacheTTL,
		flightTimeout: defaultSearchFlightTimeout,
		generation:    noGeneration{},
		logger:        logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute returns the cached page for req if there is one. Otherwise it runs the
// delegate and caches its result. Cache failures are logged and bypassed.
func (c *CachedSearchQuery) Execute(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	ctx, span := tracer.Start(ctx, "CachedSearchQuery.Execute")
	defer span.End()

	searchCacheTotalCounter.Inc()

	req = NormalizeSearchRequest(req)
	key := keys.SearchCacheKey(req.Term, req.Limit, req.Offset, req.Identity)

	if res, ok := c.lookup(ctx, key); ok {
		searchCacheHitCounter.Inc()
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return res, nil
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	gen := c.generation.Generation()

	// concurrent misses on the same key share one delegated search. It runs detached
	// from the context of the caller that started it, so that caller going away does
	// not fail the others; every caller still stops waiting when its own context ends.
	ch := c.group.DoChan(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		flightCtx, cancel := c.flightContext(ctx)
		defer cancel()

		res, err := c.delegate.Execute(flightCtx, req)
		if err != nil {
			return nil, err
		}
		c.save(flightCtx, key, gen, res)
		return res, nil
	})

	var flight singleflight.Result
	select {
	case <-ctx.Done():
		return nil, serverErrors.HandleError("", ctx.Err())
	case flight = <-ch:
	}
	if flight.Err != nil {
		return nil, flight.Err
	}
	span.SetAttributes(attribute.Bool("shared", flight.Shared))

	res := flight.Val.(*SearchResult)
	if flight.Shared {
		// every caller gets its own copy of the page
		res = cloneSearchResult(res)
	}
	return res, nil
}

func (c *CachedSearchQuery) flightContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if c.flightTimeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, c.flightTimeout)
}

func (c *CachedSearchQuery) lookup(ctx context.Context, key string) (*SearchResult, bool) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.cacheError(ctx, "search cache read failed", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var res SearchResult
	if err := json.Unmarshal(raw, &res); err != nil {
		c.cacheError(ctx, "search cache entry could not be decoded", err)
		return nil, false
	}
	if res.Results == nil {
		res.Results = []storage.Record{}
	}
	return &res, true
}

func (c *CachedSearchQuery) save(ctx context.Context, key string, gen uint64, res *SearchResult) {
	if c.generation.Generation() != gen {
		return
	}

	raw, err := json.Marshal(res)
	if err != nil {
		c.cacheError(ctx, "search result could not be encoded", err)
		return
	}

	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.cacheError(ctx, "search cache write failed", err)
		return
	}

	// an invalidation that ran between the check above and the write may have missed
	// this entry
	if c.generation.Generation() != gen {
		if err := c.store.InvalidateAll(context.WithoutCancel(ctx)); err != nil {
			c.cacheError(ctx, "search cache could not drop a stale entry", err)
		}
	}
}

func (c *CachedSearchQuery) cacheError(ctx context.Context, msg string, err error) {
	searchCacheErrorCounter.Inc()
	c.logger.WarnWithContext(ctx, msg, zap.Stringer("kind", serverErrors.KindCache), zap.Error(err))
}

func cloneSearchResult(res *SearchResult) *SearchResult {
	out := *res
	out.Results = make([]storage.Record, len(res.Results))
	copy(out.Results, res.Results)
	for i := range out.Results {
		out.Results[i].Tags = append([]string{}, res.Results[i].Tags...)
	}
	return &out
}
