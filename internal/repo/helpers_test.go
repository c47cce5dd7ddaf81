package repo_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"recordkeep/internal/db"
	"recordkeep/internal/domain"
	"recordkeep/internal/ident"
	"recordkeep/internal/migrate"
	"recordkeep/internal/repo"
)

// fixedAllocator replays a fixed list of identities, then reports exhaustion.
type fixedAllocator struct {
	mu  sync.Mutex
	ids []uint64
}

func (f *fixedAllocator) Next() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ids) == 0 {
		return 0, ident.ErrExhausted
	}
	id := f.ids[0]
	f.ids = f.ids[1:]
	return id, nil
}

type backend struct {
	name string
	open func(t *testing.T, alloc ident.Allocator) repo.Indexed[domain.Record]
}

func backends() []backend {
	return []backend{
		{name: "memory", open: func(t *testing.T, alloc ident.Allocator) repo.Indexed[domain.Record] {
			return repo.NewMemoryStore(alloc, repo.WithCloner(domain.Record.Clone))
		}},
		{name: "sqlite", open: func(t *testing.T, alloc ident.Allocator) repo.Indexed[domain.Record] {
			return newSQLStore(t, alloc)
		}},
	}
}

func newSQLStore(t *testing.T, alloc ident.Allocator) *repo.SQLStore[domain.Record] {
	t.Helper()
	conn, err := db.Open(db.Config{Name: "repo-" + uuid.NewString()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(context.Background(), conn))
	return repo.NewSQLStore[domain.Record](conn, "record", alloc)
}

func sampleRecords() []domain.Record {
	return []domain.Record{
		*domain.NewRecord(7, "Alice", "alice@example.com").AddRole("admin").AddRole("user").WithMetadata("team", "core"),
		*domain.NewRecord(9, "Bob", "bob@example.com").AddRole("user"),
	}
}

func requireSameRecord(t *testing.T, want, got domain.Record) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}
