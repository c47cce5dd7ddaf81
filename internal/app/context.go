package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"recordkeep/internal/config"
	"recordkeep/internal/db"
	"recordkeep/internal/domain"
	"recordkeep/internal/ident"
	"recordkeep/internal/logging"
	"recordkeep/internal/migrate"
	"recordkeep/internal/repo"
)

// seedConcurrency bounds the writers used to load seed records.
const seedConcurrency = 4

// Runtime is what the composition root wires together. The allocator is
// created here, once per process, and handed to every store.
type Runtime struct {
	Config  *config.Config
	Logger  *zap.Logger
	Alloc   *ident.Counter
	Records *repo.Instrumented[domain.Record]
	conn    *sql.DB
}

// New builds the allocator and the record store selected by cfg, then loads
// cfg.Seed into it.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger)
	rt := &Runtime{
		Config: cfg,
		Logger: logger,
		Alloc:  ident.NewCounter(cfg.Store.FirstID),
	}

	var store repo.Indexed[domain.Record]
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		conn, err := db.Open(db.Config{Name: cfg.Store.Name})
		if err != nil {
			return nil, err
		}
		if err := migrate.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		rt.conn = conn
		store = repo.NewSQLStore[domain.Record](conn, "record", rt.Alloc)
	default:
		store = repo.NewMemoryStore(rt.Alloc, repo.WithCloner(domain.Record.Clone))
	}
	rt.Records = repo.Instrument(store, cfg.Store.Backend, logger)

	if len(cfg.Seed) > 0 {
		ids, err := rt.Seed(ctx, cfg.Seed)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
		logger.Info("seeded records", zap.Int("count", len(ids)))
	}
	logger.Info("store ready", zap.String("backend", cfg.Store.Backend), zap.Uint64("next_id", rt.Alloc.Current()))
	return rt, nil
}

// Seed saves the given records concurrently.
func (rt *Runtime) Seed(ctx context.Context, seed []config.SeedRecord) ([]uint64, error) {
	items := make([]domain.Record, 0, len(seed))
	for _, s := range seed {
		items = append(items, RecordFromSeed(s))
	}
	return repo.SaveAll[domain.Record](ctx, rt.Records, items, seedConcurrency)
}

// Schema reports the applied and the latest known schema versions of the
// sqlite backend. ok is false for backends without a schema.
func (rt *Runtime) Schema(ctx context.Context) (current, latest int, ok bool, err error) {
	if rt.conn == nil {
		return 0, 0, false, nil
	}
	if current, err = migrate.Version(ctx, rt.conn); err != nil {
		return 0, 0, false, err
	}
	if latest, err = migrate.Latest(); err != nil {
		return 0, 0, false, err
	}
	return current, latest, true, nil
}

// Close releases the database behind the sqlite backend.
func (rt *Runtime) Close() error {
	if rt.conn == nil {
		return nil
	}
	err := rt.conn.Close()
	rt.conn = nil
	if err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}

// RecordFromSeed builds an unsaved record. The store identity is minted on
// save and never written into the record.
func RecordFromSeed(s config.SeedRecord) domain.Record {
	r := domain.NewRecord(s.RecordID, s.Name, s.Contact)
	for _, role := range s.Roles {
		r.AddRole(role)
	}
	for k, v := range s.Attributes {
		r.WithMetadata(k, v)
	}
	return *r
}
