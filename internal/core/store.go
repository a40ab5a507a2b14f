package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Loader fetches the complete row set of one table.
type Loader[T any] func(ctx context.Context) ([]T, error)

// Store is a read cache over one remote table.
//
// Refresh is the only way rows change: it replaces the whole set on success
// and leaves the previous rows untouched on failure.
type Store[T any] struct {
	name string
	load Loader[T]

	mu       sync.RWMutex
	rows     []T
	loadedAt time.Time
	lastErr  error

	// serializes refreshes so concurrent callers do not interleave writes
	refreshMu sync.Mutex

	onRefresh func(name string, rows int)
}

// NewStore creates an empty store named after its table.
func NewStore[T any](name string, load Loader[T]) *Store[T] {
	return &Store[T]{name: name, load: load}
}

// Name returns the store name used in logs and metrics.
func (s *Store[T]) Name() string { return s.name }

// Refresh reloads every row from the remote table.
func (s *Store[T]) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	rows, err := s.load(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return fmt.Errorf("refresh %s: %w", s.name, err)
	}
	if rows == nil {
		rows = []T{}
	}

	s.mu.Lock()
	s.rows = rows
	s.loadedAt = time.Now()
	s.lastErr = nil
	s.mu.Unlock()

	slog.Debug("store refreshed", "store", s.name, "rows", len(rows))
	if s.onRefresh != nil {
		s.onRefresh(s.name, len(rows))
	}
	return nil
}

// EnsureLoaded refreshes the store if it has never loaded successfully.
func (s *Store[T]) EnsureLoaded(ctx context.Context) error {
	if s.Loaded() {
		return nil
	}
	return s.Refresh(ctx)
}

// Rows returns a copy of the cached rows.
func (s *Store[T]) Rows() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.rows))
	copy(out, s.rows)
	return out
}

// Len returns the number of cached rows.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Loaded reports whether at least one refresh succeeded.
func (s *Store[T]) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.loadedAt.IsZero()
}

// LoadedAt returns the time of the last successful refresh.
func (s *Store[T]) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// LastError returns the error of the most recent refresh, nil after a success.
func (s *Store[T]) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
