package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/scorehub/internal/domain/model"
)

// MemoryStore is a process-local Store with the same ordering as SQLiteStore.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   []model.Score
	closed bool
	// failAppend lets tests simulate a broken disk
	failAppend error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds a row.
func (m *MemoryStore) Append(ctx context.Context, s model.Score) error {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.closed:
		return observe("append", start, ErrClosed)
	case m.failAppend != nil:
		return observe("append", start, m.failAppend)
	}
	m.rows = append(m.rows, s)
	return observe("append", start, nil)
}

// Recent returns the newest rows first.
func (m *MemoryStore) Recent(ctx context.Context, limit int) ([]model.Score, error) {
	start := time.Now()
	out, err := m.latest(orDefault(limit, DefaultRecentLimit))
	return out, observe("recent", start, err)
}

// ForAggregation returns the newest rows first.
func (m *MemoryStore) ForAggregation(ctx context.Context, limit int) ([]model.Score, error) {
	start := time.Now()
	out, err := m.latest(orDefault(limit, DefaultAggregationLimit))
	return out, observe("aggregation", start, err)
}

func (m *MemoryStore) latest(limit int) ([]model.Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	// newest insert first, then a stable sort keeps insert order among equal timestamps
	out := make([]model.Score, len(m.rows))
	for i, r := range m.rows {
		out[len(m.rows)-1-i] = r
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of rows.
func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, observe("count", time.Now(), ErrClosed)
	}
	return len(m.rows), nil
}

// FailAppends makes every following Append return err; nil restores normal operation.
func (m *MemoryStore) FailAppends(err error) {
	m.mu.Lock()
	m.failAppend = err
	m.mu.Unlock()
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
