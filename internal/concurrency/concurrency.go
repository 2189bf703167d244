// Package concurrency runs independent datastore reads side by side.
package concurrency

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// NewPool returns a pool whose tasks share a context that is cancelled as soon as one of
// them fails. Wait returns the first error seen.
func NewPool(ctx context.Context, maxGoroutines int) *pool.ContextPool {
	return pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(maxGoroutines)
}

// Pair runs first and second concurrently and returns both results, or the first error.
// When one fails the other's context is cancelled.
func Pair[A, B any](
	ctx context.Context,
	first func(context.Context) (A, error),
	second func(context.Context) (B, error),
) (A, B, error) {
	var (
		a A
		b B
	)

	p := NewPool(ctx, 2)
	p.Go(func(ctx context.Context) error {
		var err error
		a, err = first(ctx)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		b, err = second(ctx)
		return err
	})

	if err := p.Wait(); err != nil {
		var (
			zeroA A
			zeroB B
		)
		return zeroA, zeroB, err
	}
	return a, b, nil
}
