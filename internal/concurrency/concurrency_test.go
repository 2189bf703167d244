package concurrency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPair(t *testing.T) {
	t.Run("both_succeed", func(t *testing.T) {
		a, b, err := Pair(context.Background(),
			func(context.Context) (string, error) { return "page", nil },
			func(context.Context) (int, error) { return 7, nil },
		)
		require.NoError(t, err)
		require.Equal(t, "page", a)
		require.Equal(t, 7, b)
	})

	t.Run("run_concurrently", func(t *testing.T) {
		var started atomic.Int32
		barrier := func(ctx context.Context) (bool, error) {
			started.Add(1)
			for started.Load() < 2 {
				select {
				case <-ctx.Done():
					return false, ctx.Err()
				case <-time.After(time.Millisecond):
				}
			}
			return true, nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		a, b, err := Pair(ctx, barrier, barrier)
		require.NoError(t, err)
		require.True(t, a)
		require.True(t, b)
	})

	t.Run("first_error_cancels_the_other", func(t *testing.T) {
		boom := errors.New("boom")

		a, b, err := Pair(context.Background(),
			func(ctx context.Context) (string, error) {
				<-ctx.Done()
				return "late", ctx.Err()
			},
			func(context.Context) (int, error) { return 3, boom },
		)
		require.ErrorIs(t, err, boom)
		require.Empty(t, a)
		require.Zero(t, b)
	})
}

func TestNewPoolReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")

	p := NewPool(context.Background(), 1)
	p.Go(func(context.Context) error { return boom })
	p.Go(func(context.Context) error { return errors.New("second") })

	require.ErrorIs(t, p.Wait(), boom)
}
