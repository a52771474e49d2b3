package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEach runs action for every item with at most limit goroutines in flight
// (limit <= 0 means unbounded). It waits for all of them and returns the first
// error; the ctx handed to the remaining actions is cancelled on that error.
func ForEach[T any](ctx context.Context, items []T, limit int, action func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, item := range items {
		g.Go(func() error {
			return action(gctx, item)
		})
	}
	return g.Wait()
}

// Map applies mapFn to every item concurrently, preserving order.
// On error the partial results are discarded.
func Map[T any, R any](ctx context.Context, items []T, limit int, mapFn func(context.Context, T) (R, error)) ([]R, error) {
	out := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for idx, item := range items {
		g.Go(func() error {
			r, err := mapFn(gctx, item)
			if err != nil {
				return err
			}
			out[idx] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
