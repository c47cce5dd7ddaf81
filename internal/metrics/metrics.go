package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ─── Stores ──────────────────────────────────────────────────────────────────

	RecordsSaved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recordkeep",
		Subsystem: "store",
		Name:      "saves_total",
		Help:      "Save calls, labelled by backend and outcome.",
	}, []string{"backend", "outcome"})

	RecordsStored = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "recordkeep",
		Subsystem: "store",
		Name:      "records",
		Help:      "Records held by the store, set from its count after each save, labelled by backend.",
	}, []string{"backend"})

	LookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recordkeep",
		Subsystem: "store",
		Name:      "lookups_total",
		Help:      "FindByID calls, labelled by backend and result (hit, miss, error).",
	}, []string{"backend", "result"})

	// ─── Classification ──────────────────────────────────────────────────────────

	StatusesClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recordkeep",
		Subsystem: "status",
		Name:      "classified_total",
		Help:      "Work statuses classified, labelled by category.",
	}, []string{"category"})
)

// Outcome labels for RecordsSaved.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)
