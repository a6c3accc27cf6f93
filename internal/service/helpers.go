package service

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	DefaultBatchSize = 500
	// deleteBatch bounds identity lists sent in one filter so request
	// URLs stay short.
	deleteBatch = 100
)

func formatValidationErrors(errs []error) error {
	msg := fmt.Sprintf("bundle validation failed (%d errors):", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}

// insertBatched writes items in batches of size. A failed batch is
// retried row by row so one bad row does not sink its neighbours; fail
// is called for every row that still cannot be written.
func insertBatched[T any](
	ctx context.Context,
	logger *slog.Logger,
	kind string,
	size int,
	items []T,
	insert func(context.Context, []T) error,
	fail func(T, error),
) int {
	inserted := 0
	for start := 0; start < len(items); start += size {
		batch := items[start:min(start+size, len(items))]
		err := insert(ctx, batch)
		if err == nil {
			inserted += len(batch)
			continue
		}
		logger.Warn("batch insert failed, writing rows one by one",
			"kind", kind, "offset", start, "size", len(batch), "error", err)
		for _, item := range batch {
			if err := insert(ctx, []T{item}); err != nil {
				fail(item, err)
				continue
			}
			inserted++
		}
	}
	return inserted
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		out = append(out, ids[start:min(start+size, len(ids))])
	}
	return out
}
