package catalog

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// fetchPartitions fans fn out over keys with bounded concurrency, pacing
// each request through the shared limiter. A failed partition is logged,
// counted, and skipped; it never aborts the remaining keys. Payloads come
// back in key issue order so downstream measurement accumulation stays
// deterministic even though requests complete out of order.
func fetchPartitions[T any](
	ctx context.Context,
	keys []string,
	limit int,
	limiter *rate.Limiter,
	logger *slog.Logger,
	fn func(context.Context, string) (T, error),
) (payloads []T, successCount, errorCount int) {
	results := make([]*T, len(keys))
	var succeeded, failed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(limit)

	for i, key := range keys {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					failed.Add(1)
					return nil
				}
			}

			payload, err := fn(ctx, key)
			if err != nil {
				logger.Warn("partition fetch failed, skipping", "key", key, "error", err)
				failed.Add(1)
				return nil
			}

			// Disjoint index per goroutine; no lock needed.
			results[i] = &payload
			succeeded.Add(1)
			return nil
		})
	}

	// Workers never return errors; Wait is purely a join point.
	_ = g.Wait()

	payloads = make([]T, 0, len(keys))
	for _, r := range results {
		if r != nil {
			payloads = append(payloads, *r)
		}
	}
	return payloads, int(succeeded.Load()), int(failed.Load())
}
