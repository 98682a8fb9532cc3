// Package parallel fans frame work out over a bounded set of goroutines.
//
// Work only fans out for frames of Threshold rows or more; below that the
// goroutine overhead outweighs the gain and callers run sequentially.
// Results always come back in input order.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Threshold is the row count from which frame operations run in parallel
const Threshold = 1000

// WorkerPool bounds how many items are processed at once
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a pool of numWorkers; zero or less means one per CPU
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{numWorkers: numWorkers}
}

// Workers returns the concurrency limit
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

// Map runs fn for every item and returns the results in input order. The
// first error cancels the context passed to the remaining calls and is
// returned.
func Map[T, R any](ctx context.Context, wp *WorkerPool, items []T, fn func(context.Context, int, T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	results := make([]R, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(wp.numWorkers)
	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := fn(ctx, i, item)
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

// ShouldParallelize reports whether work over rows rows split into parts
// independent pieces is worth fanning out
func ShouldParallelize(rows, parts int) bool {
	return rows >= Threshold && parts > 1
}
