package repo

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Repository is the capability set every record store provides.
// FindByID reports a miss with ok == false; its error is reserved for
// backend faults.
type Repository[T any] interface {
	Save(ctx context.Context, item T) (uint64, error)
	FindByID(ctx context.Context, id uint64) (T, bool, error)
	FindAll(ctx context.Context) ([]T, error)
}

// Entry pairs a stored value with the identity the store minted for it.
// The value itself is kept exactly as it was saved.
type Entry[T any] struct {
	ID    uint64
	Value T
}

// Indexed stores can also list their values together with their identities.
type Indexed[T any] interface {
	Repository[T]
	Entries(ctx context.Context) ([]Entry[T], error)
}

// ErrNotFound lets outer layers turn a lookup miss into an error.
var ErrNotFound = errors.New("not found")

// SaveError is the only error a Save returns.
type SaveError struct {
	Backend string
	Err     error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("%s save: %v", e.Backend, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

func saveError(backend string, err error) error {
	return &SaveError{Backend: backend, Err: err}
}

// Count is derived from FindAll and is the same for every backend.
func Count[T any](ctx context.Context, r Repository[T]) (int, error) {
	items, err := r.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Get is FindByID with a miss reported as ErrNotFound.
func Get[T any](ctx context.Context, r Repository[T], id uint64) (T, error) {
	item, ok, err := r.FindByID(ctx, id)
	if err != nil {
		return item, err
	}
	if !ok {
		return item, fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	return item, nil
}

// SaveAll saves items concurrently, at most limit at a time (no bound when
// limit <= 0). Identities are returned in input order. The first failure
// cancels the remaining saves.
func SaveAll[T any](ctx context.Context, r Repository[T], items []T, limit int) ([]uint64, error) {
	ids := make([]uint64, len(items))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			id, err := r.Save(gctx, item)
			if err != nil {
				return fmt.Errorf("save item %d: %w", i, err)
			}
			ids[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}
