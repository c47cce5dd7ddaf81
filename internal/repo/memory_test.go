package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordkeep/internal/domain"
	"recordkeep/internal/ident"
	"recordkeep/internal/repo"
)

func TestMemoryStoreClonerIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryStore(ident.NewCounter(0), repo.WithCloner(domain.Record.Clone))

	rec := domain.NewRecord(0, "Alice", "a@x.com").AddRole("admin")
	id, err := store.Save(ctx, *rec)
	require.NoError(t, err)
	rec.Roles[0] = "mutated"

	got, ok, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"admin"}, got.Roles)

	got.AddRole("extra")
	again, _, _ := store.FindByID(ctx, id)
	assert.Equal(t, []string{"admin"}, again.Roles)
}

func TestMemoryStoreDuplicateIdentityOverwrites(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryStore[domain.Record](&fixedAllocator{ids: []uint64{3, 3}})
	_, err := store.Save(ctx, *domain.NewRecord(0, "first", ""))
	require.NoError(t, err)
	_, err = store.Save(ctx, *domain.NewRecord(0, "second", ""))
	require.NoError(t, err)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, _, _ := store.FindByID(ctx, 3)
	assert.Equal(t, "second", got.Name)
}

func TestMemoryStorePlainValues(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryStore[string](ident.NewCounter(40))
	id, err := store.Save(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, uint64(40), id)
	got, ok, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", got)
}

func TestMemoryStoresShareAllocator(t *testing.T) {
	ctx := context.Background()
	alloc := ident.NewCounter(0)
	users := repo.NewMemoryStore[domain.Record](alloc)
	notes := repo.NewMemoryStore[string](alloc)

	a, err := users.Save(ctx, *domain.NewRecord(0, "a", ""))
	require.NoError(t, err)
	b, err := notes.Save(ctx, "note")
	require.NoError(t, err)
	c, err := users.Save(ctx, *domain.NewRecord(0, "c", ""))
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1, 2}, []uint64{a, b, c})

	_, ok, err := users.FindByID(ctx, b)
	require.NoError(t, err)
	assert.False(t, ok)
}
