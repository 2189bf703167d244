package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestInMemoryLRU(t *testing.T) {
	ctx := context.Background()

	c := NewInMemoryLRU(WithMaxEntries(10))
	t.Cleanup(func() {
		require.NoError(t, c.Close())
	})

	t.Run("miss", func(t *testing.T) {
		val, ok, err := c.Get(ctx, "search:missing")
		require.NoError(t, err)
		require.False(t, ok)
		require.Nil(t, val)
	})

	t.Run("set_then_get", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "search:a", []byte(`{"count":1}`), time.Minute))

		val, ok, err := c.Get(ctx, "search:a")
		require.NoError(t, err)
		require.True(t, ok)
		require.JSONEq(t, `{"count":1}`, string(val))
	})

	t.Run("expired_entries_miss", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "search:expired", []byte("x"), time.Nanosecond))
		time.Sleep(2 * time.Millisecond)

		_, ok, err := c.Get(ctx, "search:expired")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("invalidate_all", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			require.NoError(t, c.Set(ctx, fmt.Sprintf("search:%d", i), []byte("x"), time.Minute))
		}

		require.NoError(t, c.InvalidateAll(ctx))

		size, err := c.Size(ctx)
		require.NoError(t, err)
		require.Zero(t, size)

		for i := 0; i < 5; i++ {
			_, ok, err := c.Get(ctx, fmt.Sprintf("search:%d", i))
			require.NoError(t, err)
			require.False(t, ok)
		}
	})
}

func TestInMemoryLRUIsBounded(t *testing.T) {
	ctx := context.Background()

	c := NewInMemoryLRU(WithMaxEntries(4))
	t.Cleanup(func() {
		require.NoError(t, c.Close())
	})

	for i := 0; i < 20; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("search:%d", i), []byte("x"), time.Minute))
	}

	require.Eventually(t, func() bool {
		size, err := c.Size(ctx)
		return err == nil && size <= 4
	}, time.Second, 10*time.Millisecond)
}

func TestInMemoryLRUConcurrentAccessAndClear(t *testing.T) {
	ctx := context.Background()

	c := NewInMemoryLRU(WithMaxEntries(64))
	t.Cleanup(func() {
		require.NoError(t, c.Close())
	})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("search:%d", i%16)
				_ = c.Set(ctx, key, []byte(key), time.Minute)
				if val, ok, _ := c.Get(ctx, key); ok {
					// a racing clear may remove the entry, but never corrupt it
					require.Equal(t, key, string(val))
				}
				if i%25 == 0 {
					_ = c.InvalidateAll(ctx)
				}
			}
		}(w)
	}
	wg.Wait()
}

func TestInMemoryLRUCloseIsIdempotent(t *testing.T) {
	c := NewInMemoryLRU()
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestNoopStore(t *testing.T) {
	ctx := context.Background()
	var s Store = NoopStore{}

	require.NoError(t, s.Set(ctx, "search:a", []byte("x"), time.Minute))

	_, ok, err := s.Get(ctx, "search:a")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.InvalidateAll(ctx))

	size, err := s.Size(ctx)
	require.NoError(t, err)
	require.Zero(t, size)
	require.NoError(t, s.Close())
}
