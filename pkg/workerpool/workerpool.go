// Package workerpool provides simple concurrent processing utilities.
package workerpool

import (
	"context"
	"sync"
)

// Process runs a worker pool over the provided work items, invoking process for each.
// The first error cancels the pool context and is returned; later errors are dropped.
func Process[T any](
	ctx context.Context,
	workerCount int,
	items []T,
	process func(context.Context, int, T) error,
) error {
	if len(items) == 0 {
		return ctx.Err()
	}
	if workerCount <= 0 || workerCount > len(items) {
		workerCount = len(items)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type task struct {
		idx  int
		item T
	}

	tasks := make(chan task, workerCount)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case tk, ok := <-tasks:
					if !ok {
						return
					}
					if err := process(ctx, tk.idx, tk.item); err != nil {
						once.Do(func() {
							firstErr = err
							cancel()
						})
						return
					}
				}
			}
		}()
	}

	go func() {
		defer close(tasks)
		for i, item := range items {
			select {
			case <-ctx.Done():
				return
			case tasks <- task{idx: i, item: item}:
			}
		}
	}()

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	// parent cancellation; our own cancel only fires together with firstErr.
	return ctx.Err()
}

// Map applies fn to every item concurrently and returns the results in input order.
func Map[T, R any](
	ctx context.Context,
	workerCount int,
	items []T,
	fn func(context.Context, T) (R, error),
) ([]R, error) {
	out := make([]R, len(items))
	err := Process(ctx, workerCount, items, func(ctx context.Context, idx int, item T) error {
		res, err := fn(ctx, item)
		if err != nil {
			return err
		}
		out[idx] = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
