package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLinkerMetrics() {
	r.MatchPassesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lci_match_passes_total",
			Help: "Total number of match passes run against a pool",
		},
		[]string{"pool"},
	)

	r.MatchExchangesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lci_match_exchanges_total",
			Help: "Unlinked exchanges examined by match passes, by outcome",
		},
		[]string{"pool", "outcome"},
	)

	r.MatchDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lci_match_duration_seconds",
			Help:    "Match pass duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1.0, 10.0},
		},
		[]string{"pool"},
	)

	r.UnlinkedExchanges = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lci_unlinked_exchanges",
			Help: "Exchanges without a resolved input in the database under import",
		},
		[]string{"database"},
	)

	r.OverridesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lci_manual_overrides_total",
			Help: "Exchanges changed by manual overrides",
		},
		[]string{"database"},
	)

	r.StrategiesAppliedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lci_strategies_applied_total",
			Help: "Normalization strategies applied to import batches",
		},
		[]string{"strategy"},
	)
}
