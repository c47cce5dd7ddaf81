package repo

import (
	"context"
	"maps"
	"slices"
	"sync"

	"recordkeep/internal/ident"
)

const backendMemory = "memory"

// MemoryStore keeps values in a map keyed by identity. It is safe for
// concurrent use.
type MemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[uint64]T
	alloc ident.Allocator
	clone func(T) T
}

var _ Indexed[int] = (*MemoryStore[int])(nil)

// MemoryOption configures a MemoryStore.
type MemoryOption[T any] func(*MemoryStore[T])

// WithCloner copies values on Save and on every read, for value types that
// carry slices or maps.
func WithCloner[T any](clone func(T) T) MemoryOption[T] {
	return func(s *MemoryStore[T]) { s.clone = clone }
}

// NewMemoryStore returns an empty store minting identities from alloc.
func NewMemoryStore[T any](alloc ident.Allocator, opts ...MemoryOption[T]) *MemoryStore[T] {
	s := &MemoryStore[T]{
		items: make(map[uint64]T),
		alloc: alloc,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore[T]) copyOf(item T) T {
	if s.clone == nil {
		return item
	}
	return s.clone(item)
}

// Save stores item under a fresh identity. It fails only when the allocator
// is exhausted.
func (s *MemoryStore[T]) Save(_ context.Context, item T) (uint64, error) {
	id, err := s.alloc.Next()
	if err != nil {
		return 0, saveError(backendMemory, err)
	}
	item = s.copyOf(item)
	s.mu.Lock()
	s.items[id] = item
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryStore[T]) FindByID(_ context.Context, id uint64) (T, bool, error) {
	s.mu.RLock()
	item, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		var zero T
		return zero, false, nil
	}
	return s.copyOf(item), true, nil
}

// FindAll returns every value ordered by identity.
func (s *MemoryStore[T]) FindAll(ctx context.Context) ([]T, error) {
	entries, _ := s.Entries(ctx)
	res := make([]T, 0, len(entries))
	for _, e := range entries {
		res = append(res, e.Value)
	}
	return res, nil
}

// Entries returns every value with its identity, ordered by identity.
func (s *MemoryStore[T]) Entries(_ context.Context) ([]Entry[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Entry[T], 0, len(s.items))
	for _, id := range slices.Sorted(maps.Keys(s.items)) {
		res = append(res, Entry[T]{ID: id, Value: s.copyOf(s.items[id])})
	}
	return res, nil
}

func (s *MemoryStore[T]) Count(ctx context.Context) (int, error) {
	return Count[T](ctx, s)
}
