package syncer

import (
	"context"
	"sync"
)

// forEachLimit runs fn over items with a bounded worker pool. Unlike a
// fail-fast pool, every item is attempted; errors are collected and
// returned together. Only context cancellation stops the run early.
func forEachLimit[T any](
	ctx context.Context,
	items []T,
	workers int,
	fn func(context.Context, T) error,
) []error {
	if len(items) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan T)
	errs := make(chan error, len(items))

	var wg sync.WaitGroup
	worker := func() {
		defer wg.Done()
		for item := range jobs {
			if ctx.Err() != nil {
				errs <- ctx.Err()
				continue
			}
			if err := fn(ctx, item); err != nil {
				errs <- err
			}
		}
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker()
	}

	for _, item := range items {
		jobs <- item
	}
	close(jobs)
	wg.Wait()
	close(errs)

	var out []error
	for err := range errs {
		out = append(out, err)
	}
	return out
}
