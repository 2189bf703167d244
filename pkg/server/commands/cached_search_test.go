package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ontologymarket/catalog/internal/keys"
	"github.com/ontologymarket/catalog/internal/mocks"
	"github.com/ontologymarket/catalog/pkg/cache"
	"github.com/ontologymarket/catalog/pkg/logger"
	serverErrors "github.com/ontologymarket/catalog/pkg/server/errors"
	"github.com/ontologymarket/catalog/pkg/storage"
)

func newTestCache(t *testing.T) *cache.InMemoryLRU {
	t.Helper()
	store := cache.NewInMemoryLRU()
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func page(names ...string) *SearchResult {
	created := time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC)
	res := &SearchResult{Results: []storage.Record{}, Limit: 10}
	for _, name := range names {
		res.Results = append(res.Results, storage.Record{
			ID:        name,
			Name:      name,
			SourceURL: "https://example.com/" + name,
			IsPublic:  true,
			CreatedAt: created,
			UpdatedAt: created,
			Tags:      []string{"graph"},
		})
	}
	res.Count = len(res.Results)
	res.Total = len(res.Results)
	return res
}

func TestCachedSearchHitEqualsMiss(t *testing.T) {
	mockController := gomock.NewController(t)
	delegate := NewMockSearchExecutor(mockController)
	store := newTestCache(t)

	delegate.EXPECT().
		Execute(gomock.Any(), SearchRequest{Term: "pizza", Limit: 10, Identity: "user-a"}).
		Return(page("margherita", "marinara"), nil).
		Times(1)

	cached := NewCachedSearchQuery(delegate, store)

	miss, err := cached.Execute(context.Background(), SearchRequest{Term: "pizza", Limit: 10, Identity: "user-a"})
	require.NoError(t, err)

	hit, err := cached.Execute(context.Background(), SearchRequest{Term: "pizza", Limit: 10, Identity: "user-a"})
	require.NoError(t, err)
	require.Equal(t, miss, hit)

	size, err := store.Size(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, size)
}

func TestCachedSearchNormalizesBeforeKeying(t *testing.T) {
	mockController := gomock.NewController(t)
	delegate := NewMockSearchExecutor(mockController)

	// the delegate only ever sees the normalized term
	delegate.EXPECT().
		Execute(gomock.Any(), SearchRequest{Term: "pizza", Limit: 10}).
		Return(page("margherita"), nil).
		Times(1)

	cached := NewCachedSearchQuery(delegate, newTestCache(t))

	for _, term := range []string{"pizza", "  Pizza", "PIZZA\t"} {
		res, err := cached.Execute(context.Background(), SearchRequest{Term: term, Limit: 10})
		require.NoError(t, err)
		require.Len(t, res.Results, 1)
	}
}

func TestCachedSearchSeparatesIdentities(t *testing.T) {
	mockController := gomock.NewController(t)
	delegate := NewMockSearchExecutor(mockController)

	gomock.InOrder(
		delegate.EXPECT().Execute(gomock.Any(), SearchRequest{Limit: 10, Identity: "user-a"}).Return(page("private-a", "public"), nil),
		delegate.EXPECT().Execute(gomock.Any(), SearchRequest{Limit: 10, Identity: "user-b"}).Return(page("public"), nil),
		delegate.EXPECT().Execute(gomock.Any(), SearchRequest{Limit: 10}).Return(page("public"), nil),
	)

	cached := NewCachedSearchQuery(delegate, newTestCache(t))

	a, err := cached.Execute(context.Background(), SearchRequest{Limit: 10, Identity: "user-a"})
	require.NoError(t, err)
	require.Len(t, a.Results, 2)

	b, err := cached.Execute(context.Background(), SearchRequest{Limit: 10, Identity: "user-b"})
	require.NoError(t, err)
	require.Len(t, b.Results, 1)

	anonymous, err := cached.Execute(context.Background(), SearchRequest{Limit: 10})
	require.NoError(t, err)
	require.Len(t, anonymous.Results, 1)
}

func TestCachedSearchDoesNotCacheFailures(t *testing.T) {
	mockController := gomock.NewController(t)
	delegate := NewMockSearchExecutor(mockController)
	store := newTestCache(t)

	gomock.InOrder(
		delegate.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom")),
		delegate.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(page("ok"), nil),
	)

	cached := NewCachedSearchQuery(delegate, store)

	_, err := cached.Execute(context.Background(), SearchRequest{Limit: 10})
	require.Error(t, err)

	size, err := store.Size(context.Background())
	require.NoError(t, err)
	require.Zero(t, size)

	res, err := cached.Execute(context.Background(), SearchRequest{Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
}

func TestCachedSearchBypassesFailingStore(t *testing.T) {
	mockController := gomock.NewController(t)
	delegate := NewMockSearchExecutor(mockController)
	store := mocks.NewMockStore(mockController)
	l, logs := logger.NewObserverLogger("warn")

	store.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, false, errors.New("connection refused")).Times(2)
	store.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("connection refused")).Times(2)
	delegate.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(page("fresh"), nil).Times(2)

	cached := NewCachedSearchQuery(delegate, store, WithCachedSearchQueryLogger(l))

	for range 2 {
		res, err := cached.Execute(context.Background(), SearchRequest{Limit: 10})
		require.NoError(t, err)
		require.Len(t, res.Results, 1)
	}

	require.Equal(t, 2, logs.FilterMessage("search cache read failed").Len())
	require.Equal(t, 2, logs.FilterMessage("search cache write failed").Len())
}

func TestCachedSearchIgnoresUndecodableEntries(t *testing.T) {
	mockController := gomock.NewController(t)
	delegate := NewMockSearchExecutor(mockController)
	store := newTestCache(t)

	key := keys.SearchCacheKey("", 10, 0, "")
	require.NoError(t, store.Set(context.Background(), key, []byte("{not json"), time.Minute))

	delegate.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(page("fresh"), nil)

	cached := NewCachedSearchQuery(delegate, store)
	res, err := cached.Execute(context.Background(), SearchRequest{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, "fresh", res.Results[0].ID)

	// the bad entry was replaced
	raw, ok, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, string(raw), "fresh")
}

func TestCachedSearchSkipsWriteAfterInvalidation(t *testing.T) {
	mockController := gomock.NewController(t)
	delegate := NewMockSearchExecutor(mockController)
	store := newTestCache(t)
	invalidator := NewCacheInvalidator(store, logger.NewNoopLogger())

	delegate.EXPECT().
		Execute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ SearchRequest) (*SearchResult, error) {
			// a mutation commits while the page is being computed
			invalidator.Invalidate(ctx)
			return page("stale"), nil
		})

	cached := NewCachedSearchQuery(delegate, store, WithSearchCacheGeneration(invalidator))

	res, err := cached.Execute(context.Background(), SearchRequest{Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)

	size, err := store.Size(context.Background())
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestCachedSearchSharedMissOutlivesCancelledCaller(t *testing.T) {
	mockController := gomock.NewController(t)
	delegate := NewMockSearchExecutor(mockController)
	store := newTestCache(t)

	started := make(chan struct{})
	release := make(chan struct{})
	delegate.EXPECT().
		Execute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ SearchRequest) (*SearchResult, error) {
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return page("shared"), nil
		}).
		Times(1)

	cached := NewCachedSearchQuery(delegate, store)
	req := SearchRequest{Term: "shared", Limit: 10}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := cached.Execute(ctxA, req)
		errA <- err
	}()
	<-started

	type outcome struct {
		res *SearchResult
		err error
	}
	doneB := make(chan outcome, 1)
	go func() {
		res, err := cached.Execute(context.Background(), req)
		doneB <- outcome{res, err}
	}()

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	b := <-doneB
	require.NoError(t, b.err)
	require.Len(t, b.res.Results, 1)
	require.Equal(t, "shared", b.res.Results[0].ID)

	// the page computed for the caller that left was still cached
	size, err := store.Size(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, size)
}

func TestCachedSearchCallerDeadlineDoesNotWaitForTheSharedSearch(t *testing.T) {
	mockController := gomock.NewController(t)
	delegate := NewMockSearchExecutor(mockController)

	release := make(chan struct{})
	delegate.EXPECT().
		Execute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ SearchRequest) (*SearchResult, error) {
			<-release
			return page("late"), nil
		})

	cached := NewCachedSearchQuery(delegate, newTestCache(t))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := cached.Execute(ctx, SearchRequest{Limit: 10})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, serverErrors.KindTimeout, serverErrors.KindOf(err))

	close(release)
}

func TestCachedSearchFlightTimeout(t *testing.T) {
	mockController := gomock.NewController(t)
	delegate := NewMockSearchExecutor(mockController)

	delegate.EXPECT().
		Execute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ SearchRequest) (*SearchResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	cached := NewCachedSearchQuery(delegate, newTestCache(t), WithSearchFlightTimeout(20*time.Millisecond))

	_, err := cached.Execute(context.Background(), SearchRequest{Limit: 10})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCachedSearchRespectsTTL(t *testing.T) {
	mockController := gomock.NewController(t)
	delegate := NewMockSearchExecutor(mockController)

	delegate.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(page("p"), nil).Times(2)

	cached := NewCachedSearchQuery(delegate, newTestCache(t), WithSearchCacheTTL(10*time.Millisecond))

	_, err := cached.Execute(context.Background(), SearchRequest{Limit: 10})
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, err = cached.Execute(context.Background(), SearchRequest{Limit: 10})
	require.NoError(t, err)
}

func TestCachedSearchWithDisabledStore(t *testing.T) {
	mockController := gomock.NewController(t)
	delegate := NewMockSearchExecutor(mockController)

	delegate.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(page("p"), nil).Times(3)

	cached := NewCachedSearchQuery(delegate, cache.NoopStore{})
	for range 3 {
		_, err := cached.Execute(context.Background(), SearchRequest{Limit: 10})
		require.NoError(t, err)
	}
}

func TestCacheInvalidator(t *testing.T) {
	t.Run("clears_and_bumps_generation", func(t *testing.T) {
		store := newTestCache(t)
		require.NoError(t, store.Set(context.Background(), "search:abc", []byte("{}"), time.Minute))

		invalidator := NewCacheInvalidator(store, nil)
		require.Zero(t, invalidator.Generation())

		invalidator.Invalidate(context.Background())
		require.Equal(t, uint64(1), invalidator.Generation())

		size, err := store.Size(context.Background())
		require.NoError(t, err)
		require.Zero(t, size)
	})

	t.Run("store_failure_is_logged", func(t *testing.T) {
		mockController := gomock.NewController(t)
		store := mocks.NewMockStore(mockController)
		l, logs := logger.NewObserverLogger("warn")

		store.EXPECT().InvalidateAll(gomock.Any()).Return(errors.New("connection refused"))

		invalidator := NewCacheInvalidator(store, l)
		invalidator.Invalidate(context.Background())

		require.Equal(t, uint64(1), invalidator.Generation())
		require.Equal(t, 1, logs.FilterMessage("failed to invalidate search cache").Len())
	})

	t.Run("runs_after_the_caller_gave_up", func(t *testing.T) {
		mockController := gomock.NewController(t)
		store := mocks.NewMockStore(mockController)

		store.EXPECT().
			InvalidateAll(gomock.Any()).
			DoAndReturn(func(ctx context.Context) error {
				return ctx.Err()
			})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		l, logs := logger.NewObserverLogger("warn")
		NewCacheInvalidator(store, l).Invalidate(ctx)
		require.Zero(t, logs.Len())
	})
}
