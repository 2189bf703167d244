// Package server exposes the catalog operations: permission-aware search with a
// per-identity cache, record mutations that invalidate it, capability grants and user
// profiles.
package server

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/ontologymarket/catalog/internal/authn"
	"github.com/ontologymarket/catalog/pkg/authz"
	"github.com/ontologymarket/catalog/pkg/cache"
	"github.com/ontologymarket/catalog/pkg/logger"
	"github.com/ontologymarket/catalog/pkg/server/commands"
	serverErrors "github.com/ontologymarket/catalog/pkg/server/errors"
	"github.com/ontologymarket/catalog/pkg/storage"
)

var tracer = otel.Tracer("catalog/pkg/server")

const (
	DefaultRequestTimeout     = 10 * time.Second
	DefaultCacheTTL           = 300 * time.Second
	DefaultMaxRecordsPerWrite = 100
)

// Response is the envelope of every successful operation.
type Response[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func ok[T any](message string, data T) *Response[T] {
	return &Response[T]{Success: true, Message: message, Data: data}
}

// Server implements the catalog operations. The identity of the caller is read from
// the request context (see authn.ContextWithIdentity).
type Server struct {
	datastore storage.CatalogDatastore
	logger    logger.Logger

	cacheStore     cache.Store
	cacheTTL       time.Duration
	cacheEnabled   bool
	requestTimeout time.Duration
	maxRecords     int

	resolver    *authz.Resolver
	invalidator *commands.CacheInvalidator
	search      commands.SearchExecutor
	add         *commands.AddRecordsCommand
	update      *commands.UpdateRecordCommand
	remove      *commands.DeleteRecordsCommand
	capability  *commands.CapabilityCommand
	profile     *commands.UserProfileQuery
	visibility  *commands.UpdateUserVisibilityCommand
}

type CatalogServiceOption func(s *Server)

func WithDatastore(ds storage.CatalogDatastore) CatalogServiceOption {
	return func(s *Server) {
		s.datastore = ds
	}
}

func WithLogger(l logger.Logger) CatalogServiceOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithCacheStore sets the store backing the search cache. Defaults to an in-memory LRU.
func WithCacheStore(store cache.Store) CatalogServiceOption {
	return func(s *Server) {
		s.cacheStore = store
	}
}

func WithCacheTTL(ttl time.Duration) CatalogServiceOption {
	return func(s *Server) {
		s.cacheTTL = ttl
	}
}

// WithCacheEnabled turns the search cache on or off. When off, every search reaches the
// datastore and invalidations are no-ops.
func WithCacheEnabled(enabled bool) CatalogServiceOption {
	return func(s *Server) {
		s.cacheEnabled = enabled
	}
}

// WithRequestTimeout bounds operations whose context carries no deadline.
func WithRequestTimeout(timeout time.Duration) CatalogServiceOption {
	return func(s *Server) {
		s.requestTimeout = timeout
	}
}

func WithMaxRecordsPerWrite(n int) CatalogServiceOption {
	return func(s *Server) {
		s.maxRecords = n
	}
}

// MustNewServerWithOpts see NewServerWithOpts.
func MustNewServerWithOpts(opts ...CatalogServiceOption) *Server {
	s, err := NewServerWithOpts(opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func NewServerWithOpts(opts ...CatalogServiceOption) (*Server, error) {
	s := &Server{
		logger:         logger.NewNoopLogger(),
		cacheTTL:       DefaultCacheTTL,
		cacheEnabled:   true,
		requestTimeout: DefaultRequestTimeout,
		maxRecords:     DefaultMaxRecordsPerWrite,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.datastore == nil {
		return nil, errors.New("a datastore must be provided")
	}
	if s.cacheTTL <= 0 {
		return nil, errors.New("cache TTL must be greater than zero")
	}
	if s.maxRecords <= 0 {
		return nil, errors.New("max records per write must be greater than zero")
	}

	switch {
	case !s.cacheEnabled:
		s.cacheStore = cache.NoopStore{}
	case s.cacheStore == nil:
		s.cacheStore = cache.NewInMemoryLRU()
	}

	s.resolver = authz.NewResolver(s.datastore, s.logger)
	s.invalidator = commands.NewCacheInvalidator(s.cacheStore, s.logger)

	s.search = commands.NewCachedSearchQuery(
		commands.NewSearchQuery(s.datastore, commands.WithSearchQueryLogger(s.logger)),
		s.cacheStore,
		commands.WithSearchCacheTTL(s.cacheTTL),
		commands.WithSearchFlightTimeout(s.requestTimeout),
		commands.WithSearchCacheGeneration(s.invalidator),
		commands.WithCachedSearchQueryLogger(s.logger),
	)
	s.add = commands.NewAddRecordsCommand(s.datastore, s.invalidator,
		commands.WithAddRecordsMaxRecords(s.maxRecords),
		commands.WithAddRecordsLogger(s.logger),
	)
	s.update = commands.NewUpdateRecordCommand(s.datastore, s.resolver, s.invalidator,
		commands.WithUpdateRecordLogger(s.logger),
	)
	s.remove = commands.NewDeleteRecordsCommand(s.datastore, s.invalidator,
		commands.WithDeleteRecordsMaxRecords(s.maxRecords),
		commands.WithDeleteRecordsLogger(s.logger),
	)
	s.capability = commands.NewCapabilityCommand(s.datastore, s.resolver, s.invalidator,
		commands.WithCapabilityCommandLogger(s.logger),
	)
	s.profile = commands.NewUserProfileQuery(s.datastore, s.logger)
	s.visibility = commands.NewUpdateUserVisibilityCommand(s.profile)

	return s, nil
}

// Close releases the cache store. The datastore is owned by the caller.
func (s *Server) Close() {
	if err := s.cacheStore.Close(); err != nil {
		s.logger.Warn("failed to close the search cache", zap.Error(err))
	}
}

// IsReady reports whether the datastore is reachable.
func (s *Server) IsReady(ctx context.Context) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	status, err := s.datastore.IsReady(ctx)
	if err != nil {
		return false, err
	}

	if !status.IsReady {
		s.logger.WarnWithContext(ctx, "datastore is not ready", zap.String("message", status.Message))
	}
	return status.IsReady, nil
}

// CacheSize returns the number of cached search pages.
func (s *Server) CacheSize(ctx context.Context) (int, error) {
	return s.cacheStore.Size(ctx)
}

// WhoAmI returns the authenticated caller.
func (s *Server) WhoAmI(ctx context.Context) (*Response[authn.Identity], error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return ok("Authentication successful", *identity), nil
}

func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || s.requestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.requestTimeout)
}

func requireIdentity(ctx context.Context) (*authn.Identity, error) {
	identity, ok := authn.IdentityFromContext(ctx)
	if !ok || identity.Subject == "" {
		return nil, serverErrors.AuthenticationError(nil)
	}
	return identity, nil
}
