// Package repository persists submitted scores as an append-only log.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/pkg/metrics"
)

// Default query windows.
const (
	DefaultRecentLimit      = 50
	DefaultAggregationLimit = 500
)

// Store is the durable score log. Append is the only mutation.
type Store interface {
	// Append persists one accepted score.
	Append(ctx context.Context, s model.Score) error

	// Recent returns up to limit scores, most recent first.
	Recent(ctx context.Context, limit int) ([]model.Score, error)

	// ForAggregation returns up to limit of the latest rows for ranking.
	ForAggregation(ctx context.Context, limit int) ([]model.Score, error)

	// Count returns the number of stored scores.
	Count(ctx context.Context) (int, error)

	Close() error
}

func orDefault(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}

// observe records latency for op and wraps failures in ErrStorage.
func observe(op string, start time.Time, err error) error {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000.0)
	if err == nil {
		return nil
	}
	metrics.RecordStoreError(op)
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
