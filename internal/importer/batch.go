package importer

import (
	"context"
	"sync"
)

// runBatch invokes worker for every id with at most limit in flight.
// Dispatch follows list order up to the concurrency window; completion order
// is unspecified. Progress is reported through the emitter after each
// completion. The first worker error stops further dispatch, waits for
// in-flight work and is returned; workers that want per-record failures
// swallowed must handle them and return nil.
func runBatch(ctx context.Context, em *Emitter, limit int, ids []string, worker func(context.Context, string) error) error {
	total := len(ids)
	if total == 0 {
		em.Progress(0, 1)
		em.Progress(1, 1)
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	em.Progress(0, total)

	sem := make(chan struct{}, limit)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		firstErr  error
		completed int
	)

	for _, id := range ids {
		mu.Lock()
		aborted := firstErr != nil
		mu.Unlock()
		if aborted {
			break
		}
		if err := ctx.Err(); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()

			err := worker(ctx, id)

			mu.Lock()
			completed++
			count := completed
			if err != nil && firstErr == nil {
				firstErr = err
			}
			mu.Unlock()

			em.Progress(count, total)
		}(id)
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return firstErr
}
