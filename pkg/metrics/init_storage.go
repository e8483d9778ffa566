package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStorageMetrics() {
	r.CatalogDatabases = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "lci_catalog_databases",
			Help: "Number of databases registered in the catalog",
		},
	)

	r.CatalogRecords = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lci_catalog_records",
			Help: "Number of records held by a catalog database",
		},
		[]string{"database"},
	)

	r.StoreOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lci_store_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"store", "operation", "status"},
	)

	r.StoreOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lci_store_operation_duration_seconds",
			Help:    "Store operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"store", "operation"},
	)
}

func (r *Registry) initExportMetrics() {
	r.ExportsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lci_unlinked_exports_total",
			Help: "Unlinked exchange reports exported, by destination and status",
		},
		[]string{"destination", "status"},
	)
}
