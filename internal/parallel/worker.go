// Package parallel evaluates independent work items concurrently.
//
// Namespaces use it when a select over a large frame has several
// expressions to evaluate; each expression is an independent work item and
// results come back in input order.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Map applies fn to every item with at most limit calls in flight and
// returns the results in input order. The first error cancels ctx for the
// remaining calls and is returned. limit <= 0 means runtime.NumCPU().
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, i int, item T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	results := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, item := range items {
		g.Go(func() error {
			r, err := fn(gctx, i, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Sequential applies fn to every item in order on the calling goroutine
func Sequential[T, R any](ctx context.Context, items []T, fn func(ctx context.Context, i int, item T) (R, error)) ([]R, error) {
	results := make([]R, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := fn(ctx, i, item)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}
