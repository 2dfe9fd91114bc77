// Package workerpool runs bounded, order-preserving fan-out over a slice.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc/panics"
)

// Map applies fn to every item with at most limit calls in flight and returns
// the results in input order. Workers pull the next unclaimed index from a
// shared counter, so uneven latencies balance out across the pool.
//
// A limit below 1 is treated as 1. The first error (or recovered panic)
// cancels the remaining work and fails the whole call.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	n := len(items)
	if n == 0 {
		return []R{}, nil
	}
	if fn == nil {
		return nil, fmt.Errorf("transform is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	workers := Workers(limit, n)
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		results  = make([]R, n)
		next     atomic.Int64
		failOnce sync.Once
		firstErr error
		wg       sync.WaitGroup
	)
	fail := func(err error) {
		failOnce.Do(func() {
			firstErr = err
			cancel(err)
		})
	}

	worker := func() {
		defer wg.Done()
		for runCtx.Err() == nil {
			idx := int(next.Add(1) - 1)
			if idx >= n {
				return
			}

			var (
				catcher panics.Catcher
				out     R
				callErr error
			)
			catcher.Try(func() {
				out, callErr = fn(runCtx, items[idx])
			})
			if recovered := catcher.Recovered(); recovered != nil {
				callErr = fmt.Errorf("item %d panicked: %w", idx, recovered.AsError())
			}
			if callErr != nil {
				fail(callErr)
				return
			}
			results[idx] = out
		}
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		if err := pool.Submit(worker); err != nil {
			wg.Done()
			fail(fmt.Errorf("submit worker: %w", err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Workers returns how many workers Map spawns for n items at the given limit.
func Workers(limit, n int) int {
	if limit < 1 {
		limit = 1
	}
	if n < limit {
		return n
	}
	return limit
}
