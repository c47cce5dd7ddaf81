package repo

import (
	"context"

	"go.uber.org/zap"

	"recordkeep/internal/logging"
	"recordkeep/internal/metrics"
)

// Instrumented wraps a store with metrics and logging. The records gauge is
// set from the wrapped store's count, so wrap one store per backend label.
type Instrumented[T any] struct {
	next    Indexed[T]
	backend string
	logger  *zap.Logger
}

var _ Indexed[int] = (*Instrumented[int])(nil)

func Instrument[T any](next Indexed[T], backend string, logger *zap.Logger) *Instrumented[T] {
	return &Instrumented[T]{
		next:    next,
		backend: backend,
		logger:  logging.OrNop(logger).With(zap.String("backend", backend)),
	}
}

func (i *Instrumented[T]) Save(ctx context.Context, item T) (uint64, error) {
	id, err := i.next.Save(ctx, item)
	if err != nil {
		metrics.RecordsSaved.WithLabelValues(i.backend, metrics.OutcomeError).Inc()
		i.logger.Warn("save failed", zap.Error(err))
		return 0, err
	}
	metrics.RecordsSaved.WithLabelValues(i.backend, metrics.OutcomeOK).Inc()
	if n, err := Count[T](ctx, i.next); err != nil {
		i.logger.Warn("count after save failed", zap.Error(err))
	} else {
		metrics.RecordsStored.WithLabelValues(i.backend).Set(float64(n))
	}
	i.logger.Debug("saved", zap.Uint64("id", id))
	return id, nil
}

func (i *Instrumented[T]) FindByID(ctx context.Context, id uint64) (T, bool, error) {
	item, ok, err := i.next.FindByID(ctx, id)
	switch {
	case err != nil:
		metrics.LookupsTotal.WithLabelValues(i.backend, "error").Inc()
		i.logger.Warn("lookup failed", zap.Uint64("id", id), zap.Error(err))
	case ok:
		metrics.LookupsTotal.WithLabelValues(i.backend, "hit").Inc()
	default:
		metrics.LookupsTotal.WithLabelValues(i.backend, "miss").Inc()
	}
	return item, ok, err
}

func (i *Instrumented[T]) FindAll(ctx context.Context) ([]T, error) {
	return i.next.FindAll(ctx)
}

func (i *Instrumented[T]) Entries(ctx context.Context) ([]Entry[T], error) {
	return i.next.Entries(ctx)
}

func (i *Instrumented[T]) Count(ctx context.Context) (int, error) {
	return Count[T](ctx, i)
}
