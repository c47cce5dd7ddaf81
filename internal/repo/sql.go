package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"recordkeep/internal/ident"
)

const backendSQLite = "sqlite"

// ErrIdentityRange is returned when an identity does not fit an SQLite INTEGER.
var ErrIdentityRange = errors.New("identity exceeds sqlite integer range")

// SQLStore keeps JSON-encoded values in the records table, partitioned by
// kind so several stores can share one database.
type SQLStore[T any] struct {
	DB    *sql.DB
	Kind  string
	Now   func() time.Time
	alloc ident.Allocator
}

var _ Indexed[int] = (*SQLStore[int])(nil)

// NewSQLStore expects a migrated database.
func NewSQLStore[T any](db *sql.DB, kind string, alloc ident.Allocator) *SQLStore[T] {
	return &SQLStore[T]{DB: db, Kind: kind, Now: time.Now, alloc: alloc}
}

// Save inserts item under a fresh identity. An identity that is already
// taken is rejected by the primary key instead of overwriting the row.
func (s *SQLStore[T]) Save(ctx context.Context, item T) (uint64, error) {
	id, err := s.alloc.Next()
	if err != nil {
		return 0, saveError(backendSQLite, err)
	}
	if id > math.MaxInt64 {
		return 0, saveError(backendSQLite, fmt.Errorf("identity %d: %w", id, ErrIdentityRange))
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return 0, saveError(backendSQLite, fmt.Errorf("encode %s %d: %w", s.Kind, id, err))
	}
	now := s.Now().UTC().Format(time.RFC3339)
	if _, err := s.DB.ExecContext(ctx, `INSERT INTO records(kind,id,payload,created_at) VALUES (?,?,?,?)`,
		s.Kind, int64(id), string(payload), now); err != nil {
		return 0, saveError(backendSQLite, fmt.Errorf("insert %s %d: %w", s.Kind, id, err))
	}
	return id, nil
}

func (s *SQLStore[T]) FindByID(ctx context.Context, id uint64) (T, bool, error) {
	var item T
	if id > math.MaxInt64 {
		return item, false, nil
	}
	var payload string
	err := s.DB.QueryRowContext(ctx, `SELECT payload FROM records WHERE kind=? AND id=?`, s.Kind, int64(id)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return item, false, nil
	}
	if err != nil {
		return item, false, err
	}
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		return item, false, fmt.Errorf("decode %s %d: %w", s.Kind, id, err)
	}
	return item, true, nil
}

// FindAll returns every value of the store's kind ordered by identity.
func (s *SQLStore[T]) FindAll(ctx context.Context) ([]T, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]T, 0, len(entries))
	for _, e := range entries {
		res = append(res, e.Value)
	}
	return res, nil
}

func (s *SQLStore[T]) Entries(ctx context.Context) ([]Entry[T], error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id,payload FROM records WHERE kind=? ORDER BY id`, s.Kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Entry[T]{}
	for rows.Next() {
		var (
			id      int64
			payload string
			item    T
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return nil, fmt.Errorf("decode %s %d: %w", s.Kind, id, err)
		}
		res = append(res, Entry[T]{ID: uint64(id), Value: item})
	}
	return res, rows.Err()
}

func (s *SQLStore[T]) Count(ctx context.Context) (int, error) {
	return Count[T](ctx, s)
}
