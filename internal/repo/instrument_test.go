package repo_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"recordkeep/internal/domain"
	"recordkeep/internal/metrics"
	"recordkeep/internal/repo"
)

func TestInstrumentedCountsAndLogs(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.DebugLevel)
	backend := "instrument-test"
	store := repo.Instrument[domain.Record](
		repo.NewMemoryStore[domain.Record](&fixedAllocator{ids: []uint64{1}}),
		backend, zap.New(core))

	id, err := store.Save(ctx, *domain.NewRecord(0, "Alice", ""))
	require.NoError(t, err)
	_, err = store.Save(ctx, *domain.NewRecord(0, "Bob", ""))
	require.Error(t, err)

	_, ok, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = store.FindByID(ctx, 99)
	require.NoError(t, err)
	require.False(t, ok)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsSaved.WithLabelValues(backend, metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsSaved.WithLabelValues(backend, metrics.OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsStored.WithLabelValues(backend)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LookupsTotal.WithLabelValues(backend, "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LookupsTotal.WithLabelValues(backend, "miss")))

	assert.Equal(t, 1, logs.FilterMessage("save failed").Len())
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInstrumentedGaugeTracksStoreCount(t *testing.T) {
	ctx := context.Background()
	backend := "instrument-overwrite"
	store := repo.Instrument[domain.Record](
		repo.NewMemoryStore[domain.Record](&fixedAllocator{ids: []uint64{4, 4, 5}}),
		backend, nil)

	for _, name := range []string{"first", "second"} {
		_, err := store.Save(ctx, *domain.NewRecord(0, name, ""))
		require.NoError(t, err)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsStored.WithLabelValues(backend)))

	_, err := store.Save(ctx, *domain.NewRecord(0, "third", ""))
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RecordsStored.WithLabelValues(backend)))

	entries, err := store.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Value.Name)
}
